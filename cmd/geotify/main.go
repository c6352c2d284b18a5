// Command geotify runs the geotification coordinator (geotify serve) and
// talks to a running one over HTTP.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/geotify/internal/client"
)

var (
	httpURL    string
	grpcAddr   string
	authToken  string
	jsonOutput bool

	geoClient client.GeotifyClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("GEOTIFY_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func defaultGRPCAddr() string {
	if s := os.Getenv("GEOTIFY_SERVER"); s != "" {
		return s
	}
	if a := activeRemoteGRPCAddr(); a != "" {
		return a
	}
	return "localhost:9090"
}

func defaultToken() string {
	if s := os.Getenv("GEOTIFY_TOKEN"); s != "" {
		return s
	}
	return activeRemoteToken()
}

// skipClient overrides the root PersistentPreRunE for commands that never
// talk to a server.
func skipClient(*cobra.Command, []string) error { return nil }

var rootCmd = &cobra.Command{
	Use:           "geotify <command>",
	Short:         "Geotification coordinator and CLI client",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		geoClient = client.NewHTTPClient(httpURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if geoClient != nil {
			geoClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&grpcAddr, "server", defaultGRPCAddr(), "gRPC server address (health checks)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", defaultToken(), "bearer token")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "geotifications", Title: "Geotifications:"},
		&cobra.Group{ID: "platform", Title: "Platform:"},
		&cobra.Group{ID: "data", Title: "Data:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Geotifications
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(countCmd)

	// Platform
	rootCmd.AddCommand(authorizeCmd)
	rootCmd.AddCommand(failCmd)
	rootCmd.AddCommand(regionsCmd)
	rootCmd.AddCommand(watchCmd)

	// Data
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
