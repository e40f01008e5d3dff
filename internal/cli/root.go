package cli

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"stacks-cli/internal/config"
	"stacks-cli/internal/format"
	"stacks-cli/internal/logging"
)

type App struct {
	Dir        string
	Workspace  string
	Remote     string
	ConfigFile string
	PrettyJSON bool
	Format     string
	Verbose    bool

	cfg    config.Config
	logger *log.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "stacks",
		Short:        "Ranked backlog CLI + TUI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive board
  stacks

  # Scriptable commands
  stacks board --format text
  stacks move story-1f3a9c0d --onto task-77b2e410
  stacks action top story-1f3a9c0d

  # Share a workspace over HTTP
  stacks serve --addr :8080
  stacks --remote http://localhost:8080 board
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(cmd, app, 0)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.init(cmd)
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", "", "Path to store dir (overrides workspace resolution)")
	cmd.PersistentFlags().StringVar(&app.Workspace, "workspace", "", "Workspace name (default: 'default')")
	cmd.PersistentFlags().StringVar(&app.Remote, "remote", "", "Base URL of a stacks server; uses it instead of the local store")
	cmd.PersistentFlags().StringVar(&app.ConfigFile, "config", "", "Config file (default: ~/.stacks/config.yaml)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", "json", "Output format (json|edn|text)")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Debug logging on stderr")

	cmd.AddCommand(newItemsCmd(app))
	cmd.AddCommand(newBoardCmd(app))
	cmd.AddCommand(newMoveCmd(app))
	cmd.AddCommand(newActionCmd(app))
	cmd.AddCommand(newResyncCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newPublishCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// init resolves configuration once per invocation. Flags win over STACKS_*
// variables, which win over the config file.
func (app *App) init(cmd *cobra.Command) error {
	v := config.New()
	flags := cmd.Root().PersistentFlags()
	for key, name := range map[string]string{"dir": "dir", "workspace": "workspace", "remote.url": "remote"} {
		if f := flags.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return writeErr(cmd, err)
			}
		}
	}
	cfg, err := config.Load(v, app.ConfigFile)
	if err != nil {
		return writeErr(cmd, err)
	}
	if app.Verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return writeErr(cmd, err)
	}
	app.cfg = cfg
	app.Workspace = cfg.Workspace
	app.logger = logger
	logger.WithFields(log.Fields{"workspace": cfg.Workspace, "remote": cfg.Remote.URL, "rank": cfg.Rank.Strategy}).Debug("config resolved")
	return nil
}

// envelope wraps command output as {"data": ...}. In text mode it renders its data.
type envelope struct {
	Data  any      `json:"data"`
	Hints []string `json:"_hints,omitempty"`
}

func (e envelope) Text(width int) string {
	if t, ok := e.Data.(format.Texter); ok {
		return t.Text(width)
	}
	var b strings.Builder
	_ = format.WriteJSON(&b, e.Data, true)
	return b.String()
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), envelope{Data: v}, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
