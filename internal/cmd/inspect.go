package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/domainimport/domainimport/internal/record"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.xlsx>",
	Short: "Parse a workbook locally without importing it",
	Long: `Parse a workbook with the same rules as POST /upload and print what
would be imported.

Examples:
  domainimport inspect domains.xlsx
  domainimport inspect domains.xlsx --limit 5
  domainimport inspect domains.xlsx --json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var (
	inspectLimit int
	inspectJSON  bool
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().IntVarP(&inspectLimit, "limit", "n", 20, "Max records to print (0 for all)")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output records as JSON")
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	recs, err := record.Parse(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	shown := recs
	if inspectLimit > 0 && len(shown) > inspectLimit {
		shown = shown[:inspectLimit]
	}

	out := cmd.OutOrStdout()
	if inspectJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"total":   len(recs),
			"records": shown,
		})
	}

	fmt.Fprintf(out, "%d records\n", len(recs))
	if len(shown) == 0 {
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tAGE\tSCORE\tREGISTRAR\tEXPIRES")
	for _, r := range shown {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.DomainName, fmtNum(r.Age), fmtNum(r.Score), fmtText(r.RegistrarName), fmtTime(r.ExpireAt))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(shown) < len(recs) {
		fmt.Fprintf(out, "... %d more\n", len(recs)-len(shown))
	}
	return nil
}

func fmtNum(p *uint8) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}

func fmtText(p *string) string {
	if p == nil {
		return "-"
	}
	return *p
}

func fmtTime(p *time.Time) string {
	if p == nil {
		return "-"
	}
	return p.Format(time.DateOnly)
}
