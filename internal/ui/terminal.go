package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether stdout gets ANSI colors, following
// no-color.org and the CLICOLOR conventions.
func ShouldUseColor() bool {
	return colorEnabled(os.Getenv, term.IsTerminal(int(os.Stdout.Fd())))
}

func colorEnabled(getenv func(string) string, tty bool) bool {
	switch {
	case getenv("NO_COLOR") != "":
		return false
	case strings.TrimSpace(getenv("CLICOLOR_FORCE")) == "1":
		return true
	case strings.TrimSpace(getenv("CLICOLOR")) == "0":
		return false
	}
	return tty
}
