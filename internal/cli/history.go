package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fiscalia/internal/store"
)

var (
	historyLimit    int
	historyDocument string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent classifications",
	Long: `History lists classifications recorded by classify and batch, newest first.

Example:
  fiscalia history
  fiscalia history --limit 50
  fiscalia history --document 35240312345678000190550010000012341000012345`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of entries")
	historyCmd.Flags().StringVar(&historyDocument, "document", "", "only entries for this access key or document number")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Store.Enabled {
		return errors.New("history is disabled (store.enabled=false)")
	}

	ctx := cmd.Context()
	s := openStore(ctx, cfg, false)
	if s == nil {
		return errors.New("history database is unavailable")
	}
	defer func() { _ = s.Close() }()

	var records []store.Record
	if historyDocument != "" {
		records, err = s.ByDocument(ctx, historyDocument)
	} else {
		records, err = s.Recent(ctx, historyLimit)
	}
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintf(cmd.ErrOrStderr(), "No classifications recorded for %s\n", historyDocument)
		return nil
	}
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "No classifications recorded yet (%s)\n", s.Path())
		return nil
	}

	return writeHistory(cmd.OutOrStdout(), records)
}

func writeHistory(w io.Writer, records []store.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tCFOP\tSECTOR\tTYPE\tREGIME\tALERTS\tDOCUMENT\tFILE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Code,
			r.SectorName,
			r.DocumentType,
			r.SpecialRegime,
			r.AlertCount,
			orDash(r.DocumentKey),
			r.File,
		)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
