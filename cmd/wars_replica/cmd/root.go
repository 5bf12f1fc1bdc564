package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. Each call returns an independent tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "wars_replica",
		Short: "Replay and inspect hex wargame sessions",
		Long: `wars_replica rebuilds a game from a recorded or live session stream
and answers the questions a client would ask about it.

Available commands:
  replay     Apply a session and journal every notification
  moves      List where a unit can move
  path       Find a unit's cheapest path to a tile
  attacks    List the units a unit can attack and the damage it would deal

Use "wars_replica [command] --help" for more information about a command.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configDir, "config", ".", "Directory holding wars_replica.cfg.json")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides logLevel")
	flags.StringVar(&a.logsDir, "logs-dir", "", "Directory for log files; overrides logsDir. \"-\" logs to stderr")

	root.AddCommand(
		newReplayCmd(a),
		newMovesCmd(a),
		newPathCmd(a),
		newAttacksCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
