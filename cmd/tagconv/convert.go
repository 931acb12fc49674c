package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/quphoton/tagstream/codec"
	"github.com/quphoton/tagstream/errs"
)

type convertOptions struct {
	InFormat  string
	OutFormat string
}

func newConvertCommand() *cobra.Command {
	opts := &convertOptions{}

	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Rewrite a timestamp file in another format",
		Long: `Rewrite a timestamp file in another format.

The input must be binary, compressed or raw; the output may additionally be
ascii. Events a narrower output format cannot represent (compressed records
carry stop channels 1..8 only) are skipped and reported. Output files ending
in .zst, .lz4 or .s2 are compressed on the fly.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.InFormat, "in-format", "auto", "input format (auto|raw)")
	cmd.Flags().StringVar(&opts.OutFormat, "out-format", "binary", "output format (ascii|binary|compressed|raw)")

	return cmd
}

func runConvert(cmd *cobra.Command, opts *convertOptions, inPath, outPath string) error {
	inFormat, err := parseFormat(opts.InFormat, true)
	if err != nil {
		return err
	}
	outFormat, err := parseFormat(opts.OutFormat, false)
	if err != nil {
		return err
	}

	r, err := codec.OpenTagReader(inPath, inFormat)
	if err != nil {
		return err
	}
	defer r.Close()

	header := r.Header()
	w, err := codec.NewTagWriter(outPath, outFormat,
		codec.WithDeviceType(header.DevType),
		codec.WithFeatures(header.Features),
	)
	if err != nil {
		return err
	}

	var written, skipped int
	for {
		tag, rerr := r.Next()
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			w.Close()

			return fmt.Errorf("after %d records: %w", written, rerr)
		}

		if werr := w.Write(tag); errors.Is(werr, errs.ErrUnsupportedFormat) {
			skipped++
			continue
		}
		written++
	}

	if err := w.Close(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s) -> %s (%s): %d records\n", inPath, r.Format(), outPath, outFormat, written)
	if skipped > 0 {
		fmt.Fprintf(out, "skipped %d events the %s format cannot represent\n", skipped, outFormat)
	}

	return nil
}
