package fetcher

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Workbook is a parsed XLSX file.
type Workbook struct {
	file *xlsx.File
}

// OpenXLSX parses an XLSX document held in memory.
func OpenXLSX(data []byte) (*Workbook, error) {
	if len(data) == 0 {
		return nil, eris.New("xlsx: empty document")
	}
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open binary")
	}
	return &Workbook{file: f}, nil
}

// SheetNames returns sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, 0, len(w.file.Sheets))
	for _, s := range w.file.Sheets {
		names = append(names, s.Name)
	}
	return names
}

// HasSheet reports whether a sheet with exactly this name exists.
func (w *Workbook) HasSheet(name string) bool {
	_, ok := w.file.Sheet[name]
	return ok
}

// Rows returns every row of the named sheet as trimmed-right string slices.
// Rows whose cells are all blank are dropped.
func (w *Workbook) Rows(sheetName string) ([][]string, error) {
	sheet, ok := w.file.Sheet[sheetName]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found", sheetName)
	}

	var rows [][]string
	for _, row := range sheet.Rows {
		cells := rowToStrings(row)
		if blank(cells) {
			continue
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		if cell == nil {
			continue
		}
		cells[j] = cell.String()
	}
	return cells
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// SheetData is one sheet to write: a header row followed by data rows.
// Row values may be string, float64, int or nil.
type SheetData struct {
	Name   string
	Header []string
	Rows   [][]any
}

// WriteXLSX encodes sheets as an XLSX document to w.
func WriteXLSX(w io.Writer, sheets ...SheetData) error {
	if len(sheets) == 0 {
		return eris.New("xlsx: no sheets to write")
	}

	f := xlsx.NewFile()
	for _, sd := range sheets {
		sheet, err := f.AddSheet(sd.Name)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %q", sd.Name)
		}

		header := sheet.AddRow()
		for _, h := range sd.Header {
			header.AddCell().SetString(h)
		}

		for _, values := range sd.Rows {
			row := sheet.AddRow()
			for _, v := range values {
				cell := row.AddCell()
				switch tv := v.(type) {
				case nil:
				case string:
					cell.SetString(tv)
				case float64:
					cell.SetFloat(tv)
				case int:
					cell.SetInt(tv)
				default:
					return eris.Errorf("xlsx: unsupported cell type %T", v)
				}
			}
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write")
	}
	return nil
}
