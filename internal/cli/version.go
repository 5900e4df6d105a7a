package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// buildInfo is the version/build metadata printed by `manhuaguidl version`.
type buildInfo struct {
	Version   string
	GoVersion string
	OS        string
	Arch      string
	Commit    string
}

func getBuildInfo(version string) buildInfo {
	info := buildInfo{
		Version:   version,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Commit:    "unknown",
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				if len(s.Value) >= 7 {
					info.Commit = s.Value[:7]
				} else {
					info.Commit = s.Value
				}
			}
		}
	}
	return info
}

func newVersionCmd(version string) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			info := getBuildInfo(version)
			if short {
				fmt.Println(info.Version)
				return
			}
			fmt.Printf("manhuaguidl %s\n", info.Version)
			fmt.Printf("  Go:      %s\n", info.GoVersion)
			fmt.Printf("  OS/Arch: %s/%s\n", info.OS, info.Arch)
			fmt.Printf("  Commit:  %s\n", info.Commit)
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")
	return cmd
}
