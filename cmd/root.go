package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"thoreinstein.com/jib/pkg/bootstrap"
	"thoreinstein.com/jib/pkg/config"
	jiberrors "thoreinstein.com/jib/pkg/errors"
	"thoreinstein.com/jib/pkg/ui"
)

var cfgFile string
var verbose bool
var appConfig *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jib",
	Short: "Jib - sync Jujutsu changes to GitHub pull requests",
	Long: `Jib is a Go-based CLI tool that turns the working jj change into a GitHub
pull request and keeps the two in sync: bookmark, push, title, base branch,
and reviewers, with an AI-assisted description drafted from the diff.

Run it from inside a jj repository. The first sync creates the pull request;
every sync after that updates it in place.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It returns the process
// exit code: 0 on success, 130 when the user cancelled a prompt, 1 for
// everything else.
func Execute() int {
	// Pre-parse global flags so the config is loaded before cobra
	// dispatches; subcommands read appConfig during RunE.
	cfgFile, verbose = bootstrap.PreParseGlobalFlags(os.Args)

	if err := initConfig(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", jiberrors.FormatUserError(err))
		return 1
	}

	return exitCodeFor(rootCmd.Execute())
}

// exitCodeFor maps an Execute error to a shell exit code. Cancellation is
// the user changing their mind, not a failure, so it is reported as a plain
// notice rather than an error. Everything else goes through FormatUserError
// so typed failures carry their fix-it guidance.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case jiberrors.Is(err, ui.ErrCancelled):
		fmt.Fprintln(os.Stderr, "Cancelled.")
		return 130
	default:
		fmt.Fprintln(os.Stderr, "Error:", jiberrors.FormatUserError(err))
		return 1
	}
}

func init() {
	cobra.OnInitialize(func() {
		_ = initConfig()
	})

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "C", "", "config file (default is $HOME/.config/jib/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	var err error
	appConfig, verbose, err = bootstrap.InitConfig(cfgFile, verbose)
	return err
}

// loadConfig returns the already loaded configuration or loads it if it
// hasn't been yet. It always returns the latest configuration derived
// from viper.
func loadConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}
	return config.Load()
}

// resetConfig clears the cached configuration.
// This is primarily used in tests to ensure each test starts with a fresh config.
func resetConfig() {
	appConfig = nil
	bootstrap.Reset()
	viper.Reset()
}
