package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/quphoton/tagstream/codec"
)

type infoOptions struct {
	Format string
}

func newInfoCommand() *cobra.Command {
	opts := &infoOptions{}

	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Print the header and record count of a timestamp file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "auto", "input format (auto|raw)")

	return cmd
}

func runInfo(cmd *cobra.Command, opts *infoOptions, path string) error {
	inFormat, err := parseFormat(opts.Format, true)
	if err != nil {
		return err
	}

	r, err := codec.OpenTagReader(path, inFormat)
	if err != nil {
		return err
	}
	defer r.Close()

	out := cmd.OutOrStdout()
	header := r.Header()
	fmt.Fprintf(out, "Format:       %s\n", r.Format())
	if r.Format().SelfDescribing() {
		fmt.Fprintf(out, "Version:      %d\n", header.Version)
		fmt.Fprintf(out, "Device:       %s\n", header.DevType)
		fmt.Fprintf(out, "Features:     0x%04x\n", uint16(header.Features))
		fmt.Fprintf(out, "Timebase:     %g s\n", header.Timebase)
		fmt.Fprintf(out, "Channels:     %d\n", header.ChannelCount)
	}

	var (
		count       int
		first, last int64
	)
	for {
		tag, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("after %d records: %w", count, err)
		}
		if count == 0 {
			first = tag.Time
		}
		last = tag.Time
		count++
	}

	fmt.Fprintf(out, "Records:      %d\n", count)
	if count > 0 {
		fmt.Fprintf(out, "Time span:    %d .. %d ps\n", first, last)
	}

	return nil
}
