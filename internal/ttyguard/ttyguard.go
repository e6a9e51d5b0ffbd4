// Package ttyguard stops terminal capability probing in non-interactive
// runs. Import it for side effects before any TUI package.
package ttyguard

import (
	"os"
	"strings"
)

// init runs before Bubble Tea acquires the terminal.
//
// Lipgloss/Termenv background detection writes OSC/DSR queries to stdout.
// They are harmless in a real terminal but end up in captured output when
// tg only writes snapshots or prints its version. Termenv skips probing
// when CI is set.
func init() {
	if os.Getenv("CI") != "" {
		return
	}
	if !shouldSuppressTTYQueries(os.Args[1:], os.Getenv("TG_TEST_MODE") != "") {
		return
	}
	_ = os.Setenv("CI", "1")
}

func shouldSuppressTTYQueries(args []string, envTest bool) bool {
	if envTest {
		return true
	}
	for _, arg := range args {
		if arg == "--" {
			break
		}
		name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		switch name {
		case "export", "version", "help", "h":
			return true
		}
	}
	return false
}
