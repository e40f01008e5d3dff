package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"stacks-cli/internal/publish"
)

func newPublishCmd(app *App) *cobra.Command {
	var (
		to        string
		all       bool
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "publish --to <dir>",
		Short: "Write the board as markdown files (index.md + items/<id>.md)",
		Example: strings.TrimSpace(`
stacks publish --to ./docs/backlog
stacks publish --to ./docs/backlog --all --overwrite
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(to) == "" {
				return writeErr(cmd, errUsage("missing --to"))
			}
			s, err := openSession(cmd, app, sessionOptions{})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			res, err := publish.WriteBoard(boardOf(app.cfg.Workspace, s.engine.Snapshot(), all), to, publish.WriteOptions{Overwrite: overwrite})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, res)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Output directory")
	cmd.Flags().BoolVar(&all, "all", false, "Include workstream items")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing files")
	return cmd
}
