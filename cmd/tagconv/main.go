// tagconv inspects, converts and generates timestamp files.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quphoton/tagstream/format"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tagconv",
		Short:         "Timestamp file toolbox",
		Long:          "Inspect, convert and generate time-tag stream files (ascii, binary, compressed, raw).",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newInfoCommand())
	cmd.AddCommand(newConvertCommand())
	cmd.AddCommand(newGenerateCommand())

	return cmd
}

// parseFormat maps a flag value to a file format. allowNone admits "auto"
// for self-describing input files.
func parseFormat(name string, allowNone bool) (format.FileFormat, error) {
	switch strings.ToLower(name) {
	case "ascii":
		return format.FormatASCII, nil
	case "binary", "bin":
		return format.FormatBinary, nil
	case "compressed", "comp":
		return format.FormatCompressed, nil
	case "raw":
		return format.FormatRaw, nil
	case "auto", "":
		if allowNone {
			return format.FormatNone, nil
		}
	}

	return format.FormatNone, fmt.Errorf("unknown format %q", name)
}
