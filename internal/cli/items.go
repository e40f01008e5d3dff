package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"stacks-cli/internal/backlog"
	"stacks-cli/internal/format"
	"stacks-cli/internal/model"
)

func newItemsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List, add, show and delete items",
	}
	cmd.AddCommand(newItemsListCmd(app))
	cmd.AddCommand(newItemsAddCmd(app))
	cmd.AddCommand(newItemsShowCmd(app))
	cmd.AddCommand(newItemsDeleteCmd(app))
	return cmd
}

func newItemsListCmd(app *App) *cobra.Command {
	var segment string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items in rank order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app, sessionOptions{})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			snap := s.engine.Snapshot()
			items := snap.Ordered()
			if strings.TrimSpace(segment) != "" {
				seg, ok := backlog.ParseSegment(segment)
				if !ok {
					return writeErr(cmd, errUsage("unknown segment %q (want up-next|backlog|excluded)", segment))
				}
				items = snap.Segment(seg)
			}
			if items == nil {
				items = []model.Item{}
			}
			return writeOut(cmd, app, format.ItemList(items))
		},
	}
	cmd.Flags().StringVar(&segment, "segment", "", "Only list one segment (up-next|backlog|excluded)")
	return cmd
}

func newItemsAddCmd(app *App) *cobra.Command {
	var (
		kind        string
		title       string
		description string
		priority    string
		status      string
		assignee    string
		tags        []string
		bug         bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an unranked item (it sorts after every ranked item)",
		Example: strings.TrimSpace(`
stacks items add --title "Checkout flow" --priority high
stacks items add --kind task --bug --title "Crash on save" --status up-next
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := creator(st)
			if err != nil {
				return writeErr(cmd, err)
			}
			it := model.Item{
				WorkspaceID: app.cfg.Workspace,
				Kind:        model.Kind(strings.ToLower(strings.TrimSpace(kind))),
				Title:       strings.TrimSpace(title),
				Description: description,
				Priority:    model.Priority(strings.ToLower(strings.TrimSpace(priority))),
				Status:      model.Status(strings.TrimSpace(status)),
				Tags:        tags,
			}
			if bug {
				if it.Kind != model.KindTask {
					return writeErr(cmd, errUsage("--bug requires --kind task"))
				}
				it.TaskSubtype = model.SubtypeBug
			}
			if a := strings.TrimSpace(assignee); a != "" {
				it.Assignee = &a
			}
			created, err := c.CreateItem(cmd.Context(), it)
			if err != nil {
				return writeErr(cmd, err)
			}
			app.logger.WithField("item", created.ID).Info("item added")
			return writeOut(cmd, app, format.ItemDetail(created))
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(model.KindStory), "Item kind (story|task)")
	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&description, "description", "", "Description (markdown)")
	cmd.Flags().StringVar(&priority, "priority", string(model.PriorityMedium), "Priority (low|medium|high|urgent)")
	cmd.Flags().StringVar(&status, "status", string(model.StatusTodo), "Status")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Assignee")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().BoolVar(&bug, "bug", false, "Task subtype bug")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newItemsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <item-id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app, sessionOptions{})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			it, ok := s.engine.Snapshot().Find(args[0])
			if !ok {
				return writeErr(cmd, backlog.NotFoundError{Kind: "item", ID: args[0]})
			}
			return writeOut(cmd, app, format.ItemDetail(it))
		},
	}
}

func newItemsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <item-id>",
		Aliases: []string{"rm"},
		Short:   "Delete an item; other ranks are left as they are",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app, sessionOptions{})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			o := s.engine.Delete(cmd.Context(), args[0])
			if err := outcomeError(o); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, outcomeView(o, args[0]))
		},
	}
}
