package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/bannerq/internal/tui"
)

var runOpts struct {
	dbus    bool
	noWatch bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch the interactive message host",
	Long: `Launch the terminal message host.

Every tab has its own queue scope. Hidden tabs suspend display, closing a
tab or navigating away dismisses the messages that belonged to it, and
locking the screen suspends display until it is unlocked.

With --dbus the host also exports io.github.jmylchreest.Bannerq on the
session bus so other programs can post messages.

Key bindings:
  e/E/W       Enqueue a tab, navigation or window message
  c           Compose a message
  enter       Press the primary button
  d           Swipe the banner away
  s           Toggle suspension
  tab/t/w     Switch, open or close tabs
  n/r/m       Navigate, reload or move the tab to a new window
  L           Show the event log
  y           Copy the session as a replayable script
  ?           Show help
  q           Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runOpts.dbus, "dbus", false,
		"Export the message service on the session bus")
	runCmd.Flags().BoolVar(&runOpts.noWatch, "no-watch", false,
		"Do not reload the config file when it changes")
}

func runTUI(cmd *cobra.Command, args []string) error {
	// The alternate screen owns the terminal, so stderr logs would corrupt
	// it. Without --log-file they are dropped.
	tuiLogger := logger
	if globalOpts.logFile == "" {
		tuiLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	watchPath := configPath()
	if runOpts.noWatch {
		watchPath = ""
	}

	return tui.Run(tui.RunOptions{
		Config:     getConfig(),
		ConfigPath: watchPath,
		Logger:     tuiLogger,
		DBus:       runOpts.dbus,
	})
}
