package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/busreg/internal/authority"
	"github.com/JonMunkholm/busreg/internal/cache"
	"github.com/JonMunkholm/busreg/internal/config"
	"github.com/JonMunkholm/busreg/internal/core"
	"github.com/JonMunkholm/busreg/internal/scanner"
	"github.com/JonMunkholm/busreg/internal/store"
	"github.com/JonMunkholm/busreg/internal/weca"
)

type ingestWecaOptions struct {
	commit   bool
	asJSON   bool
	defaults map[string]string
}

func newIngestWecaCmd() *cobra.Command {
	opts := ingestWecaOptions{}

	cmd := &cobra.Command{
		Use:   "ingest-weca",
		Short: "Pull the WECA API report and submit it",
		Long: `Fetch the registration report from the WECA API ($WECA_API_URL) and run it
through the submission pipeline as the service user $WECA_SERVICE_GROUP /
$WECA_SERVICE_USER.

The report does not carry every registration column. Supply the rest with
--default column=value; rows still missing a required column are rejected
and listed in the report. The staged batch is committed unless --commit=false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkDefaultColumns(opts.defaults); err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Weca.URL == "" {
				return errors.New("WECA_API_URL is not set")
			}

			ctx := cmd.Context()
			pool, err := store.Connect(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			rdb, err := cache.New(ctx, cfg.Redis)
			if err != nil {
				return err
			}
			var lookupCache authority.Cache
			if rdb != nil {
				defer rdb.Close()
				if cfg.Authority.CacheTTL > 0 {
					lookupCache = authority.NewRedisCache(rdb.Client, cfg.Authority.CacheTTL)
				}
			}

			st := store.New(pool)
			service, err := core.NewService(core.Dependencies{
				// The report is rendered locally, never uploaded.
				Scanner:   scanner.NoopScanner{},
				Authority: authority.New(cfg.Authority, lookupCache),
				Staging:   st,
				Upserter:  st,
				Reports:   st,
				Searcher:  st,
			}, core.ServiceConfig{
				Encodings:          []string{"utf-8"},
				DefaultTrafficArea: cfg.Submission.DefaultTrafficArea,
				Timeout:            cfg.Submission.Timeout,
				MaxConcurrent:      1,
			})
			if err != nil {
				return err
			}

			identity, err := store.NewDirectory(pool).Resolve(ctx, cfg.Weca.Group, cfg.Weca.User)
			if err != nil {
				return fmt.Errorf("resolve service identity: %w", err)
			}

			importer := weca.NewImporter(weca.New(cfg.Weca), service, identity, opts.defaults)
			res, runErr := importer.Run(ctx, opts.commit)
			if res != nil {
				if err := printIngestResult(cmd.OutOrStdout(), res, opts.asJSON); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&opts.commit, "commit", true, "commit the staged batch once the report is in")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	cmd.Flags().StringToStringVar(&opts.defaults, "default", nil, "column=value for columns the WECA report lacks (repeatable)")
	return cmd
}

func checkDefaultColumns(defaults map[string]string) error {
	for col := range defaults {
		if !slices.Contains(core.Columns, col) {
			return fmt.Errorf("--default %s: unknown column", col)
		}
	}
	return nil
}

func printIngestResult(w io.Writer, res *weca.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Report)
	}

	bold := color.New(color.Bold)
	if res.Report == nil {
		_, _ = bold.Fprintf(w, "WECA report: %d services\n", res.Fetched)
		return nil
	}

	printSummary(w, fmt.Sprintf("WECA report (%d services)", res.Fetched), res.Report)

	red := color.New(color.FgRed)
	for _, rej := range res.Report.RejectedAuthority {
		_, _ = red.Fprintf(w, "  row %d: ", rej.Row)
		_, _ = fmt.Fprintln(w, rej.Reason)
	}
	for _, rej := range res.Report.RejectedConflict {
		_, _ = red.Fprintf(w, "  row %d: ", rej.Row)
		_, _ = fmt.Fprintln(w, rej.Reason)
	}
	for _, rej := range res.Report.FailedRows {
		_, _ = red.Fprintf(w, "  row %d: ", rej.Row)
		_, _ = fmt.Fprintln(w, rej.Reason)
	}

	switch {
	case res.Committed:
		_, _ = color.New(color.FgGreen).Fprintf(w, "  committed batch %s\n", res.Report.BatchID)
	case res.Report.BatchID != "":
		_, _ = fmt.Fprintf(w, "  staged batch %s awaits commit or discard\n", res.Report.BatchID)
	}
	return nil
}
