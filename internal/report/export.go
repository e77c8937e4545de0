package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/siterisk/internal/fetcher"
	"github.com/sells-group/siterisk/internal/model"
)

// Export defaults.
const (
	DefaultSheetName    = "Ops_Report"
	DefaultFileTemplate = "%s_Priority_Report.xlsx"
)

// ExportOptions configures the spreadsheet export.
type ExportOptions struct {
	SheetName    string
	FileTemplate string // fmt template taking the region code
}

func (o ExportOptions) withDefaults() ExportOptions {
	if o.SheetName == "" {
		o.SheetName = DefaultSheetName
	}
	if o.FileTemplate == "" {
		o.FileTemplate = DefaultFileTemplate
	}
	return o
}

// FileName returns the download name for a region's report.
func (o ExportOptions) FileName(region string) string {
	o = o.withDefaults()
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = "ALL"
	}
	return fmt.Sprintf(o.FileTemplate, region)
}

// WriteHitList writes the full hit list for t as a single-sheet workbook.
func WriteHitList(w io.Writer, t model.Table, opts ExportOptions) error {
	opts = opts.withDefaults()
	hl := BuildHitList(t, 0)

	rows := make([][]any, len(hl.Rows))
	for i, r := range hl.Rows {
		rows[i] = r.Values(hl.Columns)
	}

	err := fetcher.WriteXLSX(w, fetcher.SheetData{
		Name:   opts.SheetName,
		Header: hl.Columns,
		Rows:   rows,
	})
	return eris.Wrap(err, "report: write hit list")
}
