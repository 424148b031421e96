package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"msgmap/internal/platform"
	"msgmap/internal/runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func (a *app) convertCmd() *cobra.Command {
	var (
		src, out    string
		dryRun      bool
		asJSON      bool
		metricsFile string
	)
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Generate TypeScript declarations for a tree of JSON Schemas",
		Long: `Mirror --src into --out, compiling every .json schema into a .d.ts file
with json-schema-to-typescript (run through npx). --dry-run only reports what
would be done.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if src == "" || out == "" {
				return errors.New("--src and --out are required")
			}
			cfg := runtime.ConverterConfig{SourceDir: src, OutputDir: out, DryRun: dryRun}

			report, err := runtime.NewConverter(cfg).Run(cmd.Context())
			platform.RecordConversion(report, err)
			if metricsFile != "" {
				if werr := writeConversionMetrics(metricsFile); werr != nil && err == nil {
					err = werr
				}
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			verb := "converted"
			if report.DryRun {
				verb = "would convert"
			}
			for _, f := range report.Files {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", f.Source, f.Target)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d file(s), %d new director(ies) [run %s]\n",
				verb, len(report.Files), len(report.DirsCreated), report.RunID)
			return nil
		},
	}
	cmd.Flags().StringVar(&src, "src", "", "directory of JSON Schema files")
	cmd.Flags().StringVar(&out, "out", "", "directory to write declarations to")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report actions without writing anything")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the conversion report as JSON")
	cmd.Flags().StringVar(&metricsFile, "metrics-textfile", "", "write conversion metrics for the node exporter textfile collector")
	return cmd
}

// writeConversionMetrics dumps the converter counters in the Prometheus text
// format.
func writeConversionMetrics(path string) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(platform.ConvertedFiles); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
