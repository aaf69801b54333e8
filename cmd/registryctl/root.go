package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "registryctl",
	Short: "CLI for the resource catalogue server",
	Long: `registryctl manages resources in a catalogue server over its HTTP API.

Each resource kind (catalogues, providers, services, ...) gets the same
command set: get, list, create, update, delete, plus the lifecycle actions
verify, publish, suspend and audit. Drafts and the public mirror are
reachable as subcommands of each kind.

Configuration is read from flags, REGISTRY_* environment variables, and
an optional $HOME/.registryctl.yaml file, in that order of precedence.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "Catalogue server URL")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().String("token", "", "Bearer token for authentication")
	rootCmd.PersistentFlags().String("user", "", "Acting user email (trusted proxy mode)")
	rootCmd.PersistentFlags().String("roles", "", "Comma-separated acting user roles (trusted proxy mode)")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(migrateCmd)
}

func initConfig(cmd *cobra.Command) error {
	viper.SetConfigName(".registryctl")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetEnvPrefix("REGISTRY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	return bindFlags(cmd.Root().PersistentFlags())
}

func bindFlags(fs *pflag.FlagSet) error {
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(f.Name, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	return bindErr
}

func setting(name string) string {
	return viper.GetString(name)
}
