package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/bannerq/internal/script"
)

var replayOpts struct {
	check bool
	json  bool
}

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Replay a scheduling script and print its trace",
	Long: `Replay a YAML or JSON scheduling script against the scheduler and
print the resulting event trace.

Scripts copied from the interactive host with "y" replay the actions
taken there. Animations finish only on finish_animations steps and
auto-dismiss timers never fire during a replay.

Exit status is non-zero when a step fails; the trace up to the failing
step is still printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().BoolVar(&replayOpts.check, "check", false,
		"Only parse and validate the script")
	replayCmd.Flags().BoolVar(&replayOpts.json, "json", false,
		"Print the trace as JSON")
}

func runReplay(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	s, err := script.Parse(path, data)
	if err != nil {
		return err
	}
	if replayOpts.check {
		fmt.Printf("%s: %s OK\n", path, english.Plural(len(s.Steps), "step", ""))
		return nil
	}

	trace, runErr := script.Run(s, script.Options{Logger: logger})
	if trace != nil {
		if replayOpts.json {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(trace); err != nil {
				return fmt.Errorf("failed to encode trace: %w", err)
			}
		} else if _, err := trace.WriteTo(os.Stdout); err != nil {
			return err
		}
	}
	return runErr
}
