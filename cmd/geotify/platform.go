package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize [level]",
	Short: "Show or change the location authorization level",
	Long: `Without arguments, prints the coordinator's authorization level.

With a level (not_determined, denied, when-in-use, always), delivers an
authorization callback as the platform would. With --request, asks the
coordinator to request Always authorization if it does not hold it.`,
	GroupID: "platform",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		request, _ := cmd.Flags().GetBool("request")
		ctx := cmd.Context()

		switch {
		case request && len(args) > 0:
			return fmt.Errorf("--request does not take a level")
		case request:
			level, err := geoClient.RequestAuthorization(ctx)
			if err != nil {
				return fmt.Errorf("requesting authorization: %w", err)
			}
			return printAuthorization(cmd, string(level))
		case len(args) == 1:
			level, err := parseAuthorization(args[0])
			if err != nil {
				return err
			}
			if err := geoClient.SetAuthorization(ctx, level); err != nil {
				return fmt.Errorf("setting authorization: %w", err)
			}
			return printAuthorization(cmd, string(level))
		default:
			level, err := geoClient.Authorization(ctx)
			if err != nil {
				return fmt.Errorf("getting authorization: %w", err)
			}
			return printAuthorization(cmd, string(level))
		}
	},
}

func printAuthorization(cmd *cobra.Command, level string) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]string{"authorization": level})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Authorization: %s\n", level)
	return nil
}

var failCmd = &cobra.Command{
	Use:     "fail <id> [message]",
	Short:   "Report a monitoring failure for a region",
	GroupID: "platform",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var message string
		if len(args) == 2 {
			message = args[1]
		}
		if err := geoClient.ReportMonitoringFailure(cmd.Context(), args[0], message); err != nil {
			return fmt.Errorf("reporting failure: %w", err)
		}
		if !jsonOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "Reported monitoring failure for %s\n", args[0])
		}
		return nil
	},
}

var regionsCmd = &cobra.Command{
	Use:     "regions",
	Short:   "List regions the platform is monitoring",
	GroupID: "platform",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := geoClient.Regions(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing regions: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		if !resp.Available {
			fmt.Fprintln(cmd.OutOrStdout(), "Region monitoring is not available on this platform.")
			return nil
		}
		if err := printRegionTable(cmd.OutOrStdout(), resp.Regions); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d regions, max radius %.0fm\n", len(resp.Regions), resp.MaxRadius)
		return nil
	},
}

func init() {
	authorizeCmd.Flags().Bool("request", false, "request Always authorization if missing")
}
