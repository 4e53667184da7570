// internal/send/recipients/recipients.go
package recipients

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"

	"github.com/cds-snc/notification-admin-sub002/internal/common/metrics"
	"github.com/cds-snc/notification-admin-sub002/internal/models"
)

// Cell is one value of a data row, tagged with the header it sits under.
type Cell struct {
	Column string
	Value  string
	Error  string
	// Ignored cells sit under a column the template does not use.
	Ignored bool
}

// Row is a validated data row. Index is zero based; the spreadsheet row
// number shown to users is Index+2.
type Row struct {
	Index            int
	Cells            []Cell
	Recipient        string
	HasBadRecipient  bool
	NotInSafelist    bool
	HasMissingData   bool
	OverMessageLimit bool

	keys []string
}

func (r Row) SpreadsheetRow() int { return r.Index + 2 }

func (r Row) HasError() bool {
	return r.HasBadRecipient || r.HasMissingData || r.OverMessageLimit
}

// Get returns the first cell whose header matches column.
func (r Row) Get(column string) (Cell, bool) {
	key := models.NormaliseKey(column)
	for i, k := range r.keys {
		if k == key {
			return r.Cells[i], true
		}
	}
	return Cell{}, false
}

// Values returns the raw cell values in header order.
func (r Row) Values() []string {
	out := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		out[i] = c.Value
	}
	return out
}

// Personalisation maps every used column's normalised name to its value.
func (r Row) Personalisation() map[string]string {
	out := make(map[string]string, len(r.Cells))
	for i, c := range r.Cells {
		if c.Ignored {
			continue
		}
		if _, ok := out[r.keys[i]]; ok {
			continue
		}
		out[r.keys[i]] = c.Value
	}
	return out
}

// View is the validated, lazily evaluated contents of a recipients CSV. It
// is rebuilt for every request and never stored.
type View struct {
	data          []byte
	templateType  models.TemplateType
	placeholders  []string
	international bool
	safelist      Safelist
	maxRows       int
	remaining     int

	headers    []string
	headerKeys []string
	headerErr  error

	countOnce sync.Once
	count     int

	summaryOnce sync.Once
	summary     summary
}

type summary struct {
	badRecipients  int
	notInSafelist  int
	missingData    int
	overLimit      int
	rowsWithErrors int
}

// Parse builds a view over csvData, which must be the UTF-8 CSV produced by
// FromFile. Only the header row is read here.
func Parse(csvData []byte, templateType models.TemplateType, placeholders []string, policy *models.ServicePolicy, remainingMessages int) *View {
	v := &View{
		data:         csvData,
		templateType: templateType,
		placeholders: placeholders,
		remaining:    remainingMessages,
	}
	if policy != nil {
		v.international = policy.HasPermission(models.PermissionInternationalSMS)
		v.maxRows = policy.MaxRows
		if policy.InTrialMode && len(policy.SafelistIdentities) > 0 && templateType != models.TemplateTypeLetter {
			v.safelist = NewSafelist(policy.SafelistIdentities)
		}
	}

	r := v.reader()
	header, err := r.Read()
	switch {
	case err == io.EOF:
	case err != nil:
		v.headerErr = fmt.Errorf("read header: %w", err)
	default:
		v.headers = header
		v.headerKeys = make([]string, len(header))
		for i, h := range header {
			v.headerKeys[i] = models.NormaliseKey(h)
		}
	}
	return v
}

func (v *View) reader() *csv.Reader {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(v.data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}

// records yields raw data rows, skipping the header and blank lines.
func (v *View) records() iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		if v.headerErr != nil || v.headers == nil {
			return
		}
		r := v.reader()
		if _, err := r.Read(); err != nil {
			return
		}
		for {
			rec, err := r.Read()
			if err != nil {
				return
			}
			if isBlank(rec) {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// AllRows yields every data row, validated, in file order. Iteration can be
// restarted and always yields the same rows.
func (v *View) AllRows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		i := 0
		for rec := range v.records() {
			if !yield(v.validate(i, rec)) {
				return
			}
			i++
		}
	}
}

// Rows yields the rows that are shown and sent: the first MaxRows rows when
// the file is over the cap.
func (v *View) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for row := range v.AllRows() {
			if v.maxRows > 0 && row.Index >= v.maxRows {
				return
			}
			if !yield(row) {
				return
			}
		}
	}
}

// RowAt returns data row i without reading past it.
func (v *View) RowAt(i int) (Row, bool) {
	if i < 0 {
		return Row{}, false
	}
	for row := range v.Rows() {
		if row.Index == i {
			return row, true
		}
	}
	return Row{}, false
}

// Preview returns up to n rows from the start of the file.
func (v *View) Preview(n int) []Row {
	var out []Row
	for row := range v.Rows() {
		if len(out) >= n {
			break
		}
		out = append(out, row)
	}
	return out
}

func (v *View) validate(index int, rec []string) Row {
	row := Row{
		Index: index,
		Cells: make([]Cell, len(v.headers)),
		keys:  v.headerKeys,
	}
	for i, h := range v.headers {
		cell := Cell{Column: h}
		if i < len(rec) {
			cell.Value = rec[i]
		}
		cell.Ignored = !v.isExpected(v.headerKeys[i])
		row.Cells[i] = cell
	}

	v.checkRecipient(&row)

	for _, p := range v.placeholders {
		if models.IsRecipientColumn(v.templateType, p) {
			continue
		}
		idx := v.columnIndex(p)
		if idx < 0 {
			continue
		}
		if strings.TrimSpace(row.Cells[idx].Value) == "" {
			row.Cells[idx].Error = MsgMissing
			row.HasMissingData = true
		}
	}

	if index >= v.remaining {
		row.OverMessageLimit = true
	}
	return row
}

func (v *View) checkRecipient(row *Row) {
	switch v.templateType {
	case models.TemplateTypeEmail, models.TemplateTypeSMS:
		col := models.RecipientColumnsFor(v.templateType)[0]
		idx := v.columnIndex(col)
		if idx < 0 {
			row.HasBadRecipient = true
			return
		}
		cell := &row.Cells[idx]
		var (
			normalised string
			err        error
		)
		if v.templateType == models.TemplateTypeEmail {
			normalised, err = ValidateEmailAddress(cell.Value)
		} else {
			normalised, err = ValidatePhoneNumber(cell.Value, v.international)
		}
		if err != nil {
			cell.Error = ErrorMessage(err)
			row.HasBadRecipient = true
			return
		}
		row.Recipient = normalised
		if v.safelist != nil && !v.safelist.Contains(normalised) {
			cell.Error = MsgNotInSafelist
			row.HasBadRecipient = true
			row.NotInSafelist = true
		}
	case models.TemplateTypeLetter:
		for _, col := range models.RecipientColumnsFor(models.TemplateTypeLetter) {
			if models.IsOptionalAddressColumn(col) {
				continue
			}
			idx := v.columnIndex(col)
			if idx < 0 {
				row.HasBadRecipient = true
				continue
			}
			if strings.TrimSpace(row.Cells[idx].Value) == "" {
				row.Cells[idx].Error = MsgMissing
				row.HasBadRecipient = true
			}
		}
		if idx := v.columnIndex("address line 1"); idx >= 0 {
			row.Recipient = strings.TrimSpace(row.Cells[idx].Value)
		}
	}
}

func (v *View) columnIndex(column string) int {
	key := models.NormaliseKey(column)
	for i, k := range v.headerKeys {
		if k == key {
			return i
		}
	}
	return -1
}

func (v *View) isExpected(key string) bool {
	if key == "" {
		return false
	}
	if models.IsRecipientColumn(v.templateType, key) {
		return true
	}
	for _, p := range v.placeholders {
		if models.NormaliseKey(p) == key {
			return true
		}
	}
	return false
}

// Err reports a header row that could not be read.
func (v *View) Err() error { return v.headerErr }

// Headers returns the header row as uploaded.
func (v *View) Headers() []string { return v.headers }

// CountOfRecipients is the number of data rows in the whole file. It is
// computed on first use.
func (v *View) CountOfRecipients() int {
	v.countOnce.Do(func() {
		for range v.records() {
			v.count++
		}
		metrics.SpreadsheetRows.Observe(float64(v.count))
	})
	return v.count
}

func (v *View) MaxRows() int { return v.maxRows }

// RowsShown is the number of data rows Rows yields: the whole file, or the
// row cap when the file is larger.
func (v *View) RowsShown() int {
	n := v.CountOfRecipients()
	if v.maxRows > 0 && n > v.maxRows {
		return v.maxRows
	}
	return n
}

// TooManyRows is true when the file has more data rows than the row cap.
func (v *View) TooManyRows() bool {
	return v.maxRows > 0 && v.CountOfRecipients() > v.maxRows
}

// MoreRowsThanCanSend is true when the file exceeds the remaining daily
// allowance.
func (v *View) MoreRowsThanCanSend() bool {
	return v.CountOfRecipients() > v.remaining
}

// RecipientColumnHeaders lists the uploaded headers that identify the
// recipient.
func (v *View) RecipientColumnHeaders() []string {
	var out []string
	for _, h := range v.headers {
		if models.IsRecipientColumn(v.templateType, h) {
			out = append(out, h)
		}
	}
	return out
}

// DuplicateRecipientColumnHeaders lists every header that normalises to the
// same name as an earlier one.
func (v *View) DuplicateRecipientColumnHeaders() []string {
	seen := make(map[string]bool, len(v.headerKeys))
	var out []string
	for i, k := range v.headerKeys {
		if k == "" {
			continue
		}
		if seen[k] {
			out = append(out, v.headers[i])
			continue
		}
		seen[k] = true
	}
	return out
}

// MissingColumnHeaders lists required recipient columns and placeholders
// with no matching header.
func (v *View) MissingColumnHeaders() []string {
	var required []string
	for _, col := range models.RecipientColumnsFor(v.templateType) {
		if !models.IsOptionalAddressColumn(col) {
			required = append(required, col)
		}
	}
	for _, p := range v.placeholders {
		if !models.IsRecipientColumn(v.templateType, p) {
			required = append(required, p)
		}
	}

	var missing []string
	for _, col := range required {
		if v.columnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	return missing
}

func (v *View) summarise() summary {
	v.summaryOnce.Do(func() {
		for row := range v.Rows() {
			if row.HasBadRecipient {
				v.summary.badRecipients++
			}
			if row.NotInSafelist {
				v.summary.notInSafelist++
			}
			if row.HasMissingData {
				v.summary.missingData++
			}
			if row.OverMessageLimit {
				v.summary.overLimit++
			}
			if row.HasError() {
				v.summary.rowsWithErrors++
			}
		}
	})
	return v.summary
}

func (v *View) RowsWithBadRecipients() int { return v.summarise().badRecipients }

// RowsNotInSafelist counts valid recipients rejected by the trial safelist.
func (v *View) RowsNotInSafelist() int { return v.summarise().notInSafelist }

func (v *View) RowsWithMissingData() int { return v.summarise().missingData }

func (v *View) RowsOverMessageLimit() int { return v.summarise().overLimit }

// RowsWithErrors counts rows in any error category.
func (v *View) RowsWithErrors() int { return v.summarise().rowsWithErrors }

// HasErrors is true when anything would stop the file being sent.
func (v *View) HasErrors() bool {
	return v.headerErr != nil ||
		v.headers == nil ||
		len(v.MissingColumnHeaders()) > 0 ||
		len(v.DuplicateRecipientColumnHeaders()) > 0 ||
		v.TooManyRows() ||
		v.MoreRowsThanCanSend() ||
		v.RowsWithErrors() > 0
}

// ErrorSummary returns one phrase per row error category, for example
// "fix 2 email addresses".
func (v *View) ErrorSummary() []string {
	var out []string
	if n := v.RowsWithBadRecipients(); n > 0 {
		switch v.templateType {
		case models.TemplateTypeEmail:
			out = append(out, plural(n, "fix %d email address", "fix %d email addresses"))
		case models.TemplateTypeSMS:
			out = append(out, plural(n, "fix %d phone number", "fix %d phone numbers"))
		case models.TemplateTypeLetter:
			out = append(out, plural(n, "fix %d address", "fix %d addresses"))
		}
	}
	if n := v.RowsWithMissingData(); n > 0 {
		out = append(out, plural(n, "enter missing data in %d row", "enter missing data in %d rows"))
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf(one, n)
	}
	return fmt.Sprintf(many, n)
}
