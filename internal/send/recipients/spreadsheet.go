// internal/send/recipients/spreadsheet.go
package recipients

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	apperrors "github.com/cds-snc/notification-admin-sub002/internal/common/errors"
	"github.com/cds-snc/notification-admin-sub002/internal/common/metrics"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Format is a spreadsheet file type, keyed by extension.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
	FormatXLSM Format = "xlsm"
	FormatXLS  Format = "xls"
	FormatODS  Format = "ods"
)

// SupportedFormats lists accepted extensions in the order shown to users.
var SupportedFormats = []Format{FormatCSV, FormatTSV, FormatXLSX, FormatXLS, FormatODS, FormatXLSM}

// errUnparseableDate marks a decoder failure on a cell value rather than on
// the file structure.
var errUnparseableDate = errors.New("unparseable cell value")

// FormatOf returns the format for fileName's extension.
func FormatOf(fileName string) (Format, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	for _, f := range SupportedFormats {
		if string(f) == ext {
			return f, true
		}
	}
	return "", false
}

// CanHandle reports whether fileName has a supported extension.
func CanHandle(fileName string) bool {
	_, ok := FormatOf(fileName)
	return ok
}

// Spreadsheet is an uploaded file converted to UTF-8 CSV with CRLF line
// endings. Every format ends up in this shape before it is stored.
type Spreadsheet struct {
	FileName string
	Data     []byte
}

// FromFile decodes data according to the extension of fileName.
func FromFile(fileName string, data []byte) (sheet *Spreadsheet, err error) {
	format, ok := FormatOf(fileName)
	if !ok {
		return nil, apperrors.NewInvalidSpreadsheetError(fileName, fmt.Errorf("unsupported extension"))
	}

	defer func() {
		result := "ok"
		if err != nil {
			result = "invalid"
			if apperrors.HasCode(err, apperrors.ErrCodeUnparseableDate) {
				result = "unparseable_date"
			}
		}
		metrics.SpreadsheetsProcessed.WithLabelValues(string(format), result).Inc()
	}()

	rows, err := decodeRows(format, data)
	if err != nil {
		if errors.Is(err, errUnparseableDate) {
			return nil, apperrors.NewUnparseableDateError(fileName, err)
		}
		return nil, apperrors.NewInvalidSpreadsheetError(fileName, err)
	}

	return &Spreadsheet{FileName: fileName, Data: RenderCSV(dropEmptyRows(rows), false)}, nil
}

// decodeRows turns any decoder panic into errUnparseableDate; the binary
// readers panic on malformed number and date cells.
func decodeRows(format Format, data []byte) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = fmt.Errorf("%w: %v", errUnparseableDate, r)
		}
	}()

	switch format {
	case FormatCSV:
		return decodeDelimited(data, ',')
	case FormatTSV:
		return decodeDelimited(data, '\t')
	case FormatXLSX, FormatXLSM:
		return decodeXLSX(data)
	case FormatXLS:
		return decodeXLS(data)
	case FormatODS:
		return decodeODS(data)
	}
	return nil, fmt.Errorf("unsupported format %s", format)
}

func decodeDelimited(data []byte, comma rune) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("file is not valid UTF-8")
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read delimited row: %w", err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func decodeXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return validUTF8(rows)
}

func decodeXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no readable sheet")
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row, ok := xlsRow(sheet, i)
		if !ok {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return validUTF8(rows)
}

// xlsRow fetches row i; the reader panics on rows with no cells.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row, ok bool) {
	defer func() {
		if recover() != nil {
			row, ok = nil, false
		}
	}()
	row = sheet.Row(i)
	return row, row != nil
}

func validUTF8(rows [][]string) ([][]string, error) {
	for _, row := range rows {
		for _, cell := range row {
			if !utf8.ValidString(cell) {
				return nil, fmt.Errorf("cell is not valid UTF-8")
			}
		}
	}
	return rows, nil
}

func dropEmptyRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// RenderCSV writes rows as CSV with CRLF line endings. withBOM prefixes the
// UTF-8 byte order mark used for downloads.
func RenderCSV(rows [][]string, withBOM bool) []byte {
	var buf bytes.Buffer
	if withBOM {
		buf.Write(utf8BOM)
	}
	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	for _, row := range rows {
		_ = w.Write(row)
	}
	w.Flush()
	return buf.Bytes()
}
