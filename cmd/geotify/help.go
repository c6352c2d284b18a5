package main

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/geotify/internal/ui"
)

// helpRule styles one capture group of every match of re.
type helpRule struct {
	re    *regexp.Regexp
	group int
	style func(string) string
}

// helpRules colorize cobra's default help output, applied in order.
var helpRules = []helpRule{
	// Section headers such as "Platform:" or "Flags:".
	{regexp.MustCompile(`(?m)^([A-Z][^\n]*:)[ \t]*$`), 1, ui.RenderAccent},
	// Command names: two-space indent, a word, then two or more spaces.
	{regexp.MustCompile(`(?m)^  (\S+)  `), 1, ui.RenderCommand},
	// Flag type annotations, e.g. "--radius float".
	{regexp.MustCompile(`--?\S+\s+(string|int|float64|float|duration|stringSlice)\b`), 1, ui.RenderMuted},
	// Defaults, e.g. (default "http://localhost:8080").
	{regexp.MustCompile(`(\(default [^)]*\))`), 1, ui.RenderMuted},
}

// colorizedHelpFunc returns a cobra help function that colors the default
// help text when the terminal supports it.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}

		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelpOutput(buf.String()))
	}
}

func colorizeHelpOutput(s string) string {
	for _, rule := range helpRules {
		s = rule.re.ReplaceAllStringFunc(s, func(match string) string {
			idx := rule.re.FindStringSubmatchIndex(match)
			start, end := idx[2*rule.group], idx[2*rule.group+1]
			return match[:start] + rule.style(match[start:end]) + match[end:]
		})
	}
	return s
}
