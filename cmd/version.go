package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Overridden at link time:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse --short HEAD)"
var (
	version = ""
	commit  = ""
)

const shortRevision = 7

// buildDetails describes the running binary.
type buildDetails struct {
	Version   string
	Revision  string
	Modified  bool
	GoVersion string
}

// readBuildDetails prefers linker values and falls back to the module
// build info embedded by the go command.
func readBuildDetails() buildDetails {
	d := buildDetails{
		Version:   version,
		Revision:  commit,
		GoVersion: runtime.Version(),
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if d.Version == "" {
			d.Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if d.Revision == "" {
					d.Revision = s.Value
				}
			case "vcs.modified":
				d.Modified = s.Value == "true"
			}
		}
	}

	if d.Version == "" {
		d.Version = "(devel)"
	}
	if len(d.Revision) > shortRevision {
		d.Revision = d.Revision[:shortRevision]
	}
	if d.Revision == "" {
		d.Revision = "unknown"
	}
	return d
}

func getVersion() string {
	return readBuildDetails().Version
}

func (d buildDetails) write(w io.Writer) {
	rev := d.Revision
	if d.Modified {
		rev += " (modified)"
	}
	fmt.Fprintf(w, "transparencia %s\n", d.Version)
	fmt.Fprintf(w, "  revision: %s\n", rev)
	fmt.Fprintf(w, "  go:       %s\n", d.GoVersion)
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show which build of the portal agent is running",
		Long: `Show the release, source revision and Go toolchain of this binary.

Release and revision come from -ldflags when the binary was linked with
them, otherwise from the module information recorded by "go build".`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			readBuildDetails().write(cmd.OutOrStdout())
		},
	}
}
