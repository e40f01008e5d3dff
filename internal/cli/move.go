package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"stacks-cli/internal/backlog"
	"stacks-cli/internal/format"
)

type outcomeResult struct {
	ItemID     string `json:"itemId,omitempty"`
	Seq        int64  `json:"seq,omitempty"`
	Noop       bool   `json:"noop"`
	Writes     int    `json:"writes"`
	Failed     int    `json:"failed,omitempty"`
	Resynced   bool   `json:"resynced,omitempty"`
	Superseded bool   `json:"superseded,omitempty"`
	Error      string `json:"error,omitempty"`

	Board *format.Board `json:"board,omitempty"`
}

func (r outcomeResult) Text(width int) string {
	head := "moved " + r.ItemID
	switch {
	case r.Noop:
		head = "nothing to do for " + r.ItemID
	case r.Error != "":
		head = "failed: " + r.Error
	}
	if r.Board == nil {
		return head
	}
	return head + "\n\n" + r.Board.Text(width)
}

func outcomeView(o backlog.Outcome, id string) outcomeResult {
	r := outcomeResult{
		ItemID:     id,
		Seq:        o.Seq,
		Noop:       o.Noop,
		Writes:     o.Writes,
		Failed:     o.Failed,
		Resynced:   o.Resynced,
		Superseded: o.Superseded,
	}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	return r
}

func newMoveCmd(app *App) *cobra.Command {
	var onto string
	cmd := &cobra.Command{
		Use:   "move <item-id> --onto <item-id>",
		Short: "Drop an item onto another, as a drag would",
		Long: strings.TrimSpace(`
Drop an item onto another item, exactly as dragging it in the board would.

Within a segment the item takes the target's position. Across segments it lands
after the target when moving down and before it when moving up, and its status
follows the target segment (up-next, or the configured backlog status).
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(onto) == "" {
				return writeErr(cmd, errUsage("missing --onto"))
			}
			s, err := openSession(cmd, app, sessionOptions{})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			snap := s.engine.Snapshot()
			for _, id := range []string{args[0], onto} {
				if _, ok := snap.Find(id); !ok {
					return writeErr(cmd, backlog.NotFoundError{Kind: "item", ID: id})
				}
			}
			o := s.engine.Drag(cmd.Context(), args[0], onto)
			if err := outcomeError(o); err != nil {
				return writeErr(cmd, err)
			}
			r := outcomeView(o, args[0])
			b := boardOf(app.cfg.Workspace, s.engine.Snapshot(), false)
			r.Board = &b
			return writeOut(cmd, app, r)
		},
	}
	cmd.Flags().StringVar(&onto, "onto", "", "Item id to drop onto")
	return cmd
}

func newActionCmd(app *App) *cobra.Command {
	names := make([]string, 0, len(backlog.Actions()))
	for _, a := range backlog.Actions() {
		names = append(names, string(a))
	}
	cmd := &cobra.Command{
		Use:       "action <name> <item-id>",
		Short:     "Run a context action (" + strings.Join(names, "|") + ")",
		Args:      cobra.ExactArgs(2),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := backlog.ParseAction(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := openSession(cmd, app, sessionOptions{})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			o := s.engine.Do(cmd.Context(), action, args[1])
			if err := outcomeError(o); err != nil {
				return writeErr(cmd, err)
			}
			r := outcomeView(o, args[1])
			b := boardOf(app.cfg.Workspace, s.engine.Snapshot(), false)
			r.Board = &b
			return writeOut(cmd, app, r)
		},
	}
	return cmd
}

func newResyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Refetch the workspace and print the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app, sessionOptions{})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()
			if err := s.engine.Resync(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, boardOf(app.cfg.Workspace, s.engine.Snapshot(), true))
		},
	}
}
