package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"codeslot/internal/config"
	"codeslot/internal/slot"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock [slot-name]",
	Short: "Remove slot lock markers",
	Long: `Remove the lock marker from a named slot, or from every locked slot
with --all.

Unlocking is the manual recovery path for markers orphaned by interrupted
dispatches and for slots deliberately left locked after a failure. Unlocking
a slot that exists but is not locked is not an error; naming a slot that
does not exist is.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUnlock,
}

var (
	unlockAll    bool
	unlockDryRun bool
	unlockJSON   bool
)

func init() {
	rootCmd.AddCommand(unlockCmd)

	unlockCmd.Flags().BoolVar(&unlockAll, "all", false, "unlock every locked slot")
	unlockCmd.Flags().BoolVar(&unlockDryRun, "dry-run", false, "report which slots would be unlocked")
	unlockCmd.Flags().BoolVar(&unlockJSON, "json", false, "emit machine-readable output")
}

func runUnlock(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	cfg := config.Get()
	logger := newLogger(cfg)
	defer func() { _ = logger.Close() }()

	unlocked, err := slot.UnlockSlots(cfg.Pool.Root, name, unlockAll, unlockDryRun, logger)
	if err != nil {
		return err
	}

	if unlockJSON {
		return printJSON(map[string]any{"unlocked": unlocked, "dry_run": unlockDryRun})
	}

	if len(unlocked) == 0 {
		fmt.Println("No locked slots.")
		return nil
	}
	verb := "Unlocked"
	if unlockDryRun {
		verb = "Would unlock"
	}
	fmt.Printf("%s: %s\n", verb, strings.Join(unlocked, ", "))
	return nil
}
