package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"codeslot/internal/config"
	"codeslot/internal/dispatch"
	"codeslot/internal/tui"
	"codeslot/internal/vscode"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch [prompt]",
	Short: "Claim a slot and send a prompt to the editor-hosted worker",
	Long: `Claim the first free slot, materialize its configuration from the
template, launch (or re-focus) the host editor against it, and deliver the
prompt to its chat worker.

By default the command returns as soon as the request is dispatched; the
worker releases the slot itself when it finishes. With --wait, the command
polls for the response file, prints its contents and releases the slot.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDispatch,
}

var (
	dispatchPromptFile  string
	dispatchAttachments []string
	dispatchWait        bool
	dispatchJSON        bool
	dispatchTemplate    string
)

func init() {
	rootCmd.AddCommand(dispatchCmd)

	dispatchCmd.Flags().StringVar(&dispatchPromptFile, "prompt-file", "", "file whose contents are staged into the slot as the prompt")
	dispatchCmd.Flags().StringArrayVar(&dispatchAttachments, "attach", nil, "file to forward to the chat worker (repeatable)")
	dispatchCmd.Flags().BoolVar(&dispatchWait, "wait", false, "wait for the response file and print it")
	dispatchCmd.Flags().BoolVar(&dispatchJSON, "json", false, "emit machine-readable output")
	dispatchCmd.Flags().StringVar(&dispatchTemplate, "template", "", "workspace template path (default: built-in template)")
}

func runDispatch(cmd *cobra.Command, args []string) error {
	prompt := ""
	if len(args) > 0 {
		prompt = args[0]
	}
	if prompt == "" && dispatchPromptFile == "" {
		return fmt.Errorf("a prompt argument or --prompt-file is required")
	}

	cfg := config.Get()
	logger := newLogger(cfg)
	defer func() { _ = logger.Close() }()

	tpl, err := resolveTemplate(dispatchTemplate, cfg)
	if err != nil {
		return err
	}

	d := dispatch.New(cfg.Pool.Root, vscode.New(cfg.Host.Command), dispatch.Config{
		Template:          tpl,
		ReadyTimeout:      cfg.Host.ReadyTimeout(),
		ReadyPollInterval: cfg.Host.ReadyPollInterval(),
		PollInterval:      cfg.Dispatch.PollInterval(),
		ReadRetries:       cfg.Dispatch.ReadRetries,
		ReadRetryDelay:    cfg.Dispatch.ReadRetryDelay(),
	}, logger)

	ctx := context.Background()
	result, err := d.Dispatch(ctx, dispatch.Request{
		Prompt:      prompt,
		PromptFile:  dispatchPromptFile,
		Attachments: dispatchAttachments,
	})
	if err != nil {
		if dispatchJSON {
			_ = printJSON(map[string]any{"success": false, "message": err.Error()})
		}
		return err
	}

	if !dispatchWait {
		if dispatchJSON {
			return printJSON(map[string]any{"success": true, "dispatched": result})
		}
		fmt.Printf("Dispatched to %s\n", result.Slot)
		fmt.Printf("Response will appear at: %s\n", result.ResponsePath)
		if result.Warning != "" {
			fmt.Printf("Warning: %s\n", result.Warning)
		}
		return nil
	}

	response, err := awaitResponse(ctx, d, result)
	if err != nil {
		if dispatchJSON {
			_ = printJSON(map[string]any{"success": false, "message": err.Error(), "dispatched": result})
		}
		return err
	}
	result.Response = response

	if dispatchJSON {
		return printJSON(map[string]any{"success": true, "dispatched": result})
	}
	if result.Warning != "" {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", result.Warning)
	}
	fmt.Print(response)
	return nil
}

// awaitResponse runs the unbounded response poll, behind a spinner when
// stdout is a terminal.
func awaitResponse(ctx context.Context, d *dispatch.Dispatcher, result *dispatch.Result) (string, error) {
	wait := func() (string, error) {
		return d.AwaitResponse(ctx, result.SlotPath, result.ResponsePath)
	}
	if dispatchJSON || !term.IsTerminal(int(os.Stdout.Fd())) {
		return wait()
	}
	return tui.Wait(result.Slot, result.ResponsePath, wait)
}
