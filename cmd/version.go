package cmd

import (
	"fmt"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ablunit version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString(Version))
	},
}

// versionString describes a build. Versions that are not semver are
// development builds.
func versionString(v string) string {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Sprintf("ablunit %s (development build, %s %s/%s)", v, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	}
	return fmt.Sprintf("ablunit v%s (%s %s/%s)", sv, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
