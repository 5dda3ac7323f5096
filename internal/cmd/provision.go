package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"codeslot/internal/config"
	"codeslot/internal/slot"
)

var provisionCmd = &cobra.Command{
	Use:   "provision <count>",
	Short: "Ensure enough unlocked slots exist",
	Long: `Ensure the pool contains the requested number of usable slots.

Existing unlocked slots are reused in ordinal order before new ones are
created; locked slots are skipped unless --force is given, in which case
their lock marker is removed and their configuration rewritten. New slot
ordinals always continue above the highest existing ordinal.`,
	Args: cobra.ExactArgs(1),
	RunE: runProvision,
}

var (
	provisionForce    bool
	provisionDryRun   bool
	provisionJSON     bool
	provisionTemplate string
)

func init() {
	rootCmd.AddCommand(provisionCmd)

	provisionCmd.Flags().BoolVar(&provisionForce, "force", false, "unlock and rewrite locked slots")
	provisionCmd.Flags().BoolVar(&provisionDryRun, "dry-run", false, "report what would happen without touching the filesystem")
	provisionCmd.Flags().BoolVar(&provisionJSON, "json", false, "emit machine-readable output")
	provisionCmd.Flags().StringVar(&provisionTemplate, "template", "", "workspace template path (default: built-in template)")
}

func runProvision(cmd *cobra.Command, args []string) error {
	count, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("count must be a positive integer, got %q", args[0])
	}

	cfg := config.Get()
	logger := newLogger(cfg)
	defer func() { _ = logger.Close() }()

	tpl, err := resolveTemplate(provisionTemplate, cfg)
	if err != nil {
		return err
	}

	result, err := slot.Provision(cfg.Pool.Root, count, tpl, slot.ProvisionOptions{
		Force:  provisionForce,
		DryRun: provisionDryRun,
	}, logger)
	if err != nil {
		return err
	}

	if provisionJSON {
		return printJSON(result)
	}

	if provisionDryRun {
		fmt.Println("Dry run; no changes made.")
	}
	printSlotList("Created", result.Created)
	printSlotList("Reused as-is", result.SkippedExisting)
	printSlotList("Skipped (locked)", result.SkippedLocked)
	return nil
}

func printSlotList(label string, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Printf("%s: %s\n", label, strings.Join(names, ", "))
}
