package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"stacks-cli/internal/cli"
)

var itemIDPrefixes = []string{"story-", "task-"}

func isItemID(s string) bool {
	s = strings.TrimSpace(s)
	for _, p := range itemIDPrefixes {
		if strings.HasPrefix(s, p) && len(s) > len(p) {
			return true
		}
	}
	return false
}

// rewriteDirectItemLookupArgs turns `stacks <item-id>` into `stacks items show <item-id>`.
// Cobra treats the first positional token as a subcommand, so argv is rewritten
// before parsing; persistent flags may come first.
func rewriteDirectItemLookupArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--dir":       true,
		"--workspace": true,
		"--remote":    true,
		"--config":    true,
		"--format":    true,
	}

	show := func(i int) []string {
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "items", "show")
		return append(out, argv[i:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		switch {
		case a == "":
			continue
		case a == "--":
			if i+1 < len(argv) && isItemID(argv[i+1]) {
				return show(i + 1)
			}
			return argv
		case strings.HasPrefix(a, "-"):
			// Skip the value of a known value flag; bool and --flag=value forms stand alone.
			if valueFlags[a] {
				i++
			}
			continue
		case isItemID(a):
			return show(i)
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewriteDirectItemLookupArgs(os.Args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
