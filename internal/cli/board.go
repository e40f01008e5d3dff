package cli

import (
	"github.com/spf13/cobra"

	"stacks-cli/internal/backlog"
	"stacks-cli/internal/format"
	"stacks-cli/internal/model"
)

var segmentTitles = map[backlog.Segment]string{
	backlog.SegmentUpNext:   "Up Next",
	backlog.SegmentBacklog:  "Backlog",
	backlog.SegmentExcluded: "Workstream",
}

func boardOf(workspace string, c backlog.Collection, all bool) format.Board {
	segs := []backlog.Segment{backlog.SegmentUpNext, backlog.SegmentBacklog}
	if all {
		segs = append(segs, backlog.SegmentExcluded)
	}
	b := format.Board{Workspace: workspace}
	for _, seg := range segs {
		items := c.Segment(seg)
		if items == nil {
			items = []model.Item{}
		}
		b.Sections = append(b.Sections, format.Section{Title: segmentTitles[seg], Items: items})
	}
	return b
}

func newBoardCmd(app *App) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the backlog split into Up Next and Backlog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app, sessionOptions{})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()
			return writeOut(cmd, app, boardOf(app.cfg.Workspace, s.engine.Snapshot(), all))
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include workstream items")
	return cmd
}
