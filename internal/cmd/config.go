package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeslot/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or initialize codeslot configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a config file with all default values at ~/.config/codeslot/config.yaml.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Println("Config file: (none - using defaults)")
	}
	fmt.Println()

	fmt.Printf("pool.root:                    %s\n", cfg.Pool.Root)
	fmt.Printf("host.command:                 %s\n", cfg.Host.Command)
	fmt.Printf("host.ready_timeout_sec:       %d\n", cfg.Host.ReadyTimeoutSec)
	fmt.Printf("host.ready_poll_interval_ms:  %d\n", cfg.Host.ReadyPollIntervalMs)
	fmt.Printf("dispatch.poll_interval_ms:    %d\n", cfg.Dispatch.PollIntervalMs)
	fmt.Printf("dispatch.read_retries:        %d\n", cfg.Dispatch.ReadRetries)
	fmt.Printf("dispatch.read_retry_delay_ms: %d\n", cfg.Dispatch.ReadRetryDelayMs)
	fmt.Printf("dispatch.template:            %s\n", cfg.Dispatch.Template)
	fmt.Printf("logging.enabled:              %t\n", cfg.Logging.Enabled)
	fmt.Printf("logging.level:                %s\n", cfg.Logging.Level)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.ConfigFile()
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Printf("Created %s\n", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	fmt.Println(config.ConfigFile())
	return nil
}
