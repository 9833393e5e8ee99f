package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"thoreinstein.com/jib/pkg/config"
	jiberrors "thoreinstein.com/jib/pkg/errors"
)

var configForce bool

// configCmd groups the configuration subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage jib configuration",
	Long: `Manage jib configuration.

Configuration lives in ~/.config/jib/config.toml, can be overridden per
repository with a .jib.toml file at the repo root, and per value with
JIB_* environment variables (e.g. JIB_AI_PROVIDER).`,
}

// configInitCmd writes a starter config file with the defaults spelled
// out.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath()
		if err != nil {
			return err
		}
		return runConfigInit(path, configForce, os.Stdout)
	},
}

// configPathCmd prints where configuration is read from.
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configFilePath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

// configShowCmd prints the effective configuration after defaults, file,
// repo-local overrides, and environment have been merged.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return jiberrors.NewConfigErrorWithCause("", "failed to load configuration", err)
		}
		return runConfigShow(cfg, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")
}

// configFilePath resolves the config file location: the --config flag,
// then the file viper actually read, then the default path.
func configFilePath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", jiberrors.Wrap(err, "failed to resolve home directory")
	}
	return filepath.Join(home, ".config", "jib", "config.toml"), nil
}

func runConfigInit(path string, force bool, out io.Writer) error {
	if _, err := os.Stat(path); err == nil && !force {
		return jiberrors.Newf("config file already exists at %s (use --force to overwrite)", path)
	}

	cfg, err := config.Default()
	if err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return jiberrors.Wrap(err, "failed to render starter config")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return jiberrors.Wrap(err, "failed to create config directory")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return jiberrors.Wrap(err, "failed to write config file")
	}

	fmt.Fprintf(out, "Wrote starter config to %s\n", path)
	return nil
}

func runConfigShow(cfg *config.Config, out io.Writer) error {
	data, err := toml.Marshal(cfg.Redacted())
	if err != nil {
		return jiberrors.Wrap(err, "failed to render configuration")
	}
	_, err = out.Write(data)
	return err
}
