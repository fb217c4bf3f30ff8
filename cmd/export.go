package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/warekit/punchd/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export derived attendance records",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default stdout; required for xlsx)")
	exportCmd.Flags().StringVar(&reportDate, "date", "", "Export a specific date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&reportFrom, "from", "", "Range start (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&reportTo, "to", "", "Range end (YYYY-MM-DD); defaults to today")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	now := time.Now()

	from, to, err := reportRange(now)
	if err != nil {
		fail(1, err)
	}

	a, err := newApp(ctx)
	if err != nil {
		fail(2, err)
	}
	defer a.close()

	records, err := a.deriveRange(ctx, from, to, now)
	if err != nil {
		fail(2, err)
	}

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			fail(2, fmt.Errorf("creating output file: %w", err))
		}
		defer f.Close()
		out = f
	}

	switch exportFormat {
	case "json":
		err = export.JSON(out, records)
	case "xlsx":
		if exportOut == "" {
			fail(1, fmt.Errorf("--out is required for xlsx export"))
		}
		err = export.XLSX(out, records)
	default: // csv
		err = export.CSV(out, records)
	}
	if err != nil {
		fail(2, err)
	}

	if exportOut != "" {
		fmt.Printf("Exported %d record(s) to %s\n", len(records), exportOut)
	}
	return nil
}
