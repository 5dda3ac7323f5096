// Package cmd wires the codeslot command-line interface.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeslot/internal/config"
	"codeslot/internal/logging"
	"codeslot/internal/workspace"
)

var rootCmd = &cobra.Command{
	Use:   "codeslot",
	Short: "Reusable workspace slots for editor-hosted chat workers",
	Long: `Codeslot maintains a pool of isolated, reusable workspace slots and
dispatches prompts to a chat worker running inside an externally launched
editor. Slots are claimed through filesystem lock markers and the worker
reports back through response files, so no daemon or network API is needed.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/codeslot/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	rootCmd.PersistentFlags().String("root", "", "slot pool root (default is $HOME/.codeslot/slots)")
	_ = viper.BindPFlag("pool.root", rootCmd.PersistentFlags().Lookup("root"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/codeslot")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CODESLOT")
	// Replace dots with underscores for nested keys in env vars
	// e.g., CODESLOT_HOST_COMMAND for host.command
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// newLogger builds the debug logger for cfg. Logging failures never block an
// operation; they degrade to a no-op logger.
func newLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}
	logger, err := logging.NewLogger(cfg.Pool.Root, strings.ToUpper(cfg.Logging.Level))
	if err != nil {
		return logging.NopLogger()
	}
	return logger
}

// resolveTemplate picks the template: an explicit flag wins over the
// configured path; with neither, the built-in default is used.
func resolveTemplate(flagPath string, cfg *config.Config) (workspace.Template, error) {
	path := flagPath
	if path == "" {
		path = cfg.Dispatch.Template
	}
	if path == "" {
		return workspace.DefaultTemplate(), nil
	}
	return workspace.LoadTemplate(path)
}
