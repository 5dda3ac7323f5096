package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"codeslot/internal/config"
	"codeslot/internal/slot"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Inspect the slot pool",
}

var slotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all slots with their lock status",
	RunE:  runSlotsList,
}

var slotsListJSON bool

var (
	lockedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	availableStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle     = lipgloss.NewStyle().Faint(true)
)

func init() {
	rootCmd.AddCommand(slotsCmd)
	slotsCmd.AddCommand(slotsListCmd)

	slotsListCmd.Flags().BoolVar(&slotsListJSON, "json", false, "emit machine-readable output")
}

func runSlotsList(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	infos, err := slot.List(cfg.Pool.Root)
	if err != nil {
		return err
	}

	if slotsListJSON {
		return printJSON(infos)
	}

	fmt.Println(strings.Repeat("─", 70))
	fmt.Printf("Slot pool: %s\n", cfg.Pool.Root)
	fmt.Println(strings.Repeat("─", 70))

	if len(infos) == 0 {
		fmt.Println("\nNo slots found.")
		fmt.Println("Run 'codeslot provision <count>' to create some.")
		return nil
	}

	for _, info := range infos {
		status := availableStyle.Render("available")
		if info.Locked {
			status = lockedStyle.Render("locked")
		}
		configNote := info.ConfigPath
		if configNote == "" {
			configNote = mutedStyle.Render("(no config)")
		}
		fmt.Printf("%-10s %-18s %s\n", info.Name, status, configNote)
	}
	return nil
}
