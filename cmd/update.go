package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	jiberrors "thoreinstein.com/jib/pkg/errors"
)

// Version is the running jib version, overridden at build time:
//
//	go build -ldflags "-X thoreinstein.com/jib/cmd.Version=1.2.3"
var Version = "dev"

const (
	repoOwner = "thoreinstein"
	repoName  = "jib"
)

var (
	updateCheck bool
	updateForce bool
	updatePre   bool
	updateYes   bool
)

// GetVersion returns the running version string.
func GetVersion() string {
	return Version
}

// updateCmd replaces the running binary with the latest release.
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update jib to the latest release",
	Long: `Update jib to the latest release published on GitHub.

The newest release is fetched from the GitHub releases of ` + repoOwner + `/` + repoName + `,
the downloaded asset is verified against the release's checksums file,
and the running binary is replaced in place.

Examples:
  jib update            # Update to the latest release
  jib update --check    # Only report whether an update exists
  jib update --yes      # Update without the confirmation prompt
  jib update --force    # Reinstall even when already up to date
  jib update --pre      # Include pre-release versions`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpdateCommand(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().BoolVarP(&updateCheck, "check", "c", false, "Check for updates without installing")
	updateCmd.Flags().BoolVarP(&updateForce, "force", "f", false, "Force update even when already up to date")
	updateCmd.Flags().BoolVarP(&updatePre, "pre", "p", false, "Include pre-release versions")
	updateCmd.Flags().BoolVarP(&updateYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runUpdateCommand(ctx context.Context) error {
	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Prerelease: updatePre,
		Validator:  &selfupdate.ChecksumValidator{UniqueFilename: "checksums.txt"},
	})
	if err != nil {
		return jiberrors.Wrap(err, "failed to initialize updater")
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(repoOwner+"/"+repoName))
	if err != nil {
		return jiberrors.Wrap(err, "failed to check for updates")
	}
	if !found {
		return jiberrors.Newf("no release found for %s/%s on this platform", repoOwner, repoName)
	}

	// A dev build has no comparable version, so it always updates.
	isDevVersion := Version == "dev"

	if updateCheck {
		fmt.Printf("Current version: %s\n", Version)
		fmt.Printf("Latest version:  %s\n", latest.Version())
		if !isDevVersion && latest.LessOrEqual(Version) {
			fmt.Println("jib is up to date.")
		} else {
			fmt.Println("An update is available. Run 'jib update' to install it.")
		}
		return nil
	}

	if !isDevVersion && latest.LessOrEqual(Version) && !updateForce {
		fmt.Printf("jib is up to date (%s).\n", Version)
		return nil
	}

	if !updateYes && !confirmUpdate(Version, latest.Version()) {
		fmt.Println("Update cancelled.")
		return nil
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return jiberrors.Wrap(err, "could not locate the running binary")
	}

	if verbose {
		fmt.Printf("Downloading %s...\n", latest.AssetName)
	}

	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return jiberrors.Wrap(err, "update failed")
	}

	fmt.Printf("Updated jib to %s\n", latest.Version())
	return nil
}

// confirmUpdate asks for confirmation on stdin. Only "y" or "yes" (any
// case) accept; everything else, including EOF, declines.
func confirmUpdate(current, latest string) bool {
	fmt.Printf("Update jib from %s to %s? [y/N]: ", current, latest)

	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
