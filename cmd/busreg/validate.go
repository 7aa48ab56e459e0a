package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/busreg/internal/core"
)

type validateOptions struct {
	encodings   []string
	trafficArea string
	asJSON      bool
}

func newValidateCmd() *cobra.Command {
	opts := validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <file.csv>",
		Short: "Check a registration file without submitting it",
		Long: `Run the structural checks and the in-file duplicate check on a CSV file.

The licensing authority and the database are not contacted, so rows that pass
here can still be rejected by a real submission.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			report, err := core.DryRun(data, opts.encodings, opts.trafficArea)
			if err != nil {
				return fmt.Errorf("%s: %s", args[0], core.FormatUserError(err))
			}

			out := cmd.OutOrStdout()
			if opts.asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printSummary(out, args[0], report)
			}

			if rejected := len(report.RejectedStructural) + len(report.RejectedDuplicate); rejected > 0 {
				return fmt.Errorf("%d of %d rows rejected", rejected, report.Rows())
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&opts.encodings, "encodings", core.DefaultEncodings, "encodings to try, in order")
	cmd.Flags().StringVar(&opts.trafficArea, "traffic-area", "WECA", "traffic area used when the column is blank")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printSummary(w io.Writer, fileName string, r *core.Report) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	_, _ = bold.Fprintf(w, "%s: %d rows\n", fileName, r.Rows())
	_, _ = green.Fprintf(w, "  accepted:   %d\n", r.Accepted)

	if n := len(r.RejectedStructural); n > 0 {
		_, _ = red.Fprintf(w, "  invalid:    %d\n", n)
	} else {
		_, _ = fmt.Fprintf(w, "  invalid:    0\n")
	}
	if n := len(r.RejectedDuplicate); n > 0 {
		_, _ = yellow.Fprintf(w, "  duplicates: %d\n", n)
	} else {
		_, _ = fmt.Fprintf(w, "  duplicates: 0\n")
	}

	for _, rej := range r.RejectedStructural {
		msgs := make([]string, 0, len(rej.Errors))
		for _, fe := range rej.Errors {
			msgs = append(msgs, fe.Error())
		}
		_, _ = red.Fprintf(w, "  row %d: ", rej.Row)
		_, _ = fmt.Fprintln(w, strings.Join(msgs, "; "))
	}
	for _, rej := range r.RejectedDuplicate {
		_, _ = yellow.Fprintf(w, "  row %d: ", rej.Row)
		_, _ = fmt.Fprintf(w, "duplicate of rows %v\n", rej.DuplicateOf)
	}
}
