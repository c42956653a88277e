package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/relief/app"
	"github.com/kilianp07/relief/config"
	"github.com/kilianp07/relief/pkg/export"
)

var reportOpts struct {
	format string
	output string
}

var reportCmd = &cobra.Command{
	Use:       "report <zones|routes|evacuations|stocks>",
	Short:     "Export a dataset from the configured store",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"zones", "routes", "evacuations", "stocks"},
	RunE:      runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportOpts.format, "format", "f", "json", "json, csv or html")
	reportCmd.Flags().StringVarP(&reportOpts.output, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	d, err := export.ParseDataset(args[0])
	if err != nil {
		return err
	}
	f, err := export.ParseFormat(reportOpts.format)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()
	if err := svc.Prepare(cmd.Context()); err != nil {
		return err
	}

	c := svc.Coordinator
	var data any
	switch d {
	case export.Zones:
		data = c.Zones()
	case export.Routes:
		data = c.Routes()
	case export.Stocks:
		data = c.Stocks()
	case export.Evacuations:
		if data, err = c.Evacuations(cmd.Context()); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if reportOpts.output != "" {
		file, err := os.Create(reportOpts.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		out = file
	}
	return export.Write(out, d, f, data)
}
