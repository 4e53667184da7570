// internal/send/recipients/recipients_test.go
package recipients

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"

	apperrors "github.com/cds-snc/notification-admin-sub002/internal/common/errors"
	"github.com/cds-snc/notification-admin-sub002/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// ==========================
// Test Helpers
// ==========================

func livePolicy(maxRows int, perms ...string) *models.ServicePolicy {
	p := &models.ServicePolicy{
		ServiceID:         "svc-1",
		Permissions:       map[string]bool{},
		MessageLimitToday: 250000,
		MaxRows:           maxRows,
	}
	for _, perm := range perms {
		p.Permissions[perm] = true
	}
	return p
}

func collect(v *View) []Row {
	var rows []Row
	for row := range v.Rows() {
		rows = append(rows, row)
	}
	return rows
}

func buildXLSX(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &values))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func buildODS(t *testing.T, tableXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("content.xml")
	require.NoError(t, err)
	_, err = fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
<office:body><office:spreadsheet>%s</office:spreadsheet></office:body></office:document-content>`, tableXML)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const happyEmailCSV = "email address,name\na@x.ca,Alice\nb@x.ca,Bob"

// ==========================
// Bulk Scenarios
// ==========================

func TestParse_HappyBulkEmail(t *testing.T) {
	sheet, err := FromFile("q1.csv", []byte(happyEmailCSV))
	require.NoError(t, err)

	v := Parse(sheet.Data, models.TemplateTypeEmail, []string{"name"}, livePolicy(1000, "email"), 250000)

	assert.Equal(t, 2, v.CountOfRecipients())
	assert.False(t, v.HasErrors())
	assert.Empty(t, v.MissingColumnHeaders())
	assert.Equal(t, []string{"email address"}, v.RecipientColumnHeaders())

	row, ok := v.RowAt(0)
	require.True(t, ok)
	assert.Equal(t, 2, row.SpreadsheetRow())
	assert.Equal(t, "a@x.ca", row.Recipient)
	assert.Equal(t, "Alice", row.Personalisation()["name"])
}

func TestParse_TrialModeSafelist(t *testing.T) {
	policy := livePolicy(1000, "email")
	policy.InTrialMode = true
	policy.SafelistIdentities = []string{"self@gov.ca"}

	v := Parse([]byte(happyEmailCSV), models.TemplateTypeEmail, []string{"name"}, policy, 250000)

	assert.Equal(t, 2, v.RowsWithBadRecipients())
	assert.Equal(t, 2, v.RowsNotInSafelist())
	assert.True(t, v.HasErrors())
	assert.Equal(t, []string{"fix 2 email addresses"}, v.ErrorSummary())
}

func TestParse_SafelistIsCaseAndFormatInsensitive(t *testing.T) {
	policy := livePolicy(10, "sms")
	policy.InTrialMode = true
	policy.SafelistIdentities = []string{"(416) 555-1234"}

	v := Parse([]byte("phone number\n+1 416 555 1234\n6135550000"), models.TemplateTypeSMS, nil, policy, 100)
	rows := collect(v)
	require.Len(t, rows, 2)
	assert.False(t, rows[0].HasBadRecipient)
	assert.True(t, rows[1].NotInSafelist)
}

func TestParse_SMSInternationalGate(t *testing.T) {
	data := []byte("phone number,code\n+14165551234,99\n+44 1632 960961,88")

	v := Parse(data, models.TemplateTypeSMS, []string{"code"}, livePolicy(1000, "sms"), 1000)
	rows := collect(v)
	require.Len(t, rows, 2)
	assert.False(t, rows[0].HasBadRecipient)
	assert.Equal(t, "+14165551234", rows[0].Recipient)
	assert.True(t, rows[1].HasBadRecipient)
	cell, _ := rows[1].Get("Phone Number")
	assert.Equal(t, MsgPhoneNotLocal, cell.Error)

	intl := Parse(data, models.TemplateTypeSMS, []string{"code"}, livePolicy(1000, "sms", models.PermissionInternationalSMS), 1000)
	assert.Equal(t, 0, intl.RowsWithBadRecipients())
	row, _ := intl.RowAt(1)
	assert.Equal(t, "+441632960961", row.Recipient)
}

func TestParse_RowCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("email address\n")
	for i := 0; i < 7; i++ {
		fmt.Fprintf(&b, "user%d@x.ca\n", i)
	}

	v := Parse([]byte(b.String()), models.TemplateTypeEmail, nil, livePolicy(5, "email"), 1000)

	assert.Equal(t, 7, v.CountOfRecipients())
	assert.Equal(t, 5, v.RowsShown())
	assert.True(t, v.TooManyRows())
	assert.True(t, v.HasErrors())
	assert.Len(t, collect(v), 5)
	_, ok := v.RowAt(5)
	assert.False(t, ok)
}

func TestParse_OverMessageLimit(t *testing.T) {
	v := Parse([]byte(happyEmailCSV), models.TemplateTypeEmail, []string{"name"}, livePolicy(1000, "email"), 1)

	rows := collect(v)
	assert.False(t, rows[0].OverMessageLimit)
	assert.True(t, rows[1].OverMessageLimit)
	assert.True(t, v.MoreRowsThanCanSend())
	assert.Equal(t, 1, v.RowsOverMessageLimit())
}

// ==========================
// Headers and Rows
// ==========================

func TestParse_Headers(t *testing.T) {
	tests := []struct {
		name       string
		csv        string
		typ        models.TemplateType
		ph         []string
		missing    []string
		duplicates []string
	}{
		{
			name: "headers matched ignoring case and punctuation",
			csv:  "Email_Address, NAME \nx@y.ca,Jo",
			typ:  models.TemplateTypeEmail,
			ph:   []string{"name"},
		},
		{
			name:    "missing placeholder",
			csv:     "email address\nx@y.ca",
			typ:     models.TemplateTypeEmail,
			ph:      []string{"name"},
			missing: []string{"name"},
		},
		{
			name:       "duplicate recipient column",
			csv:        "phone number,Phone Number\n4165551234,4165551234",
			typ:        models.TemplateTypeSMS,
			duplicates: []string{"Phone Number"},
		},
		{
			name:    "letter requires lines 1, 2 and postcode",
			csv:     "address line 1,address line 3\nA,B",
			typ:     models.TemplateTypeLetter,
			missing: []string{"address line 2", "postcode"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Parse([]byte(tt.csv), tt.typ, tt.ph, livePolicy(10, string(tt.typ)), 10)
			assert.Equal(t, tt.missing, v.MissingColumnHeaders())
			assert.Equal(t, tt.duplicates, v.DuplicateRecipientColumnHeaders())
			assert.Equal(t, len(tt.missing) > 0 || len(tt.duplicates) > 0, v.HasErrors())
		})
	}
}

func TestParse_MissingData(t *testing.T) {
	v := Parse([]byte("email address,name,city\na@x.ca,,Ottawa\nb@x.ca,Bo,Hull\n"), models.TemplateTypeEmail,
		[]string{"name", "city"}, livePolicy(10, "email"), 10)

	assert.Equal(t, 1, v.RowsWithMissingData())
	assert.Equal(t, []string{"enter missing data in 1 row"}, v.ErrorSummary())
	row, _ := v.RowAt(0)
	cell, ok := row.Get("name")
	require.True(t, ok)
	assert.Equal(t, MsgMissing, cell.Error)
}

func TestParse_LetterRows(t *testing.T) {
	v := Parse([]byte("address line 1,address line 2,postcode,owner\nJo Smith,1 Main St,K1A 0B1,x\nAl,,K1A 0B1,y"),
		models.TemplateTypeLetter, nil, livePolicy(10, "letter"), 10)

	rows := collect(v)
	require.Len(t, rows, 2)
	assert.Equal(t, "Jo Smith", rows[0].Recipient)
	assert.False(t, rows[0].HasError())
	assert.True(t, rows[1].HasBadRecipient)
	cell, _ := rows[0].Get("owner")
	assert.True(t, cell.Ignored)
	assert.Equal(t, []string{"fix 1 address"}, v.ErrorSummary())
}

func TestParse_EmptyFile(t *testing.T) {
	v := Parse(nil, models.TemplateTypeEmail, nil, livePolicy(10, "email"), 10)
	assert.Equal(t, 0, v.CountOfRecipients())
	assert.Equal(t, 0, v.RowsShown())
	assert.True(t, v.HasErrors())
	assert.Empty(t, collect(v))
}

func TestCountOfRecipients_Idempotent(t *testing.T) {
	v := Parse([]byte(happyEmailCSV), models.TemplateTypeEmail, []string{"name"}, livePolicy(10, "email"), 10)
	first := v.CountOfRecipients()
	assert.Len(t, collect(v), first)
	assert.Len(t, collect(v), first)
	assert.Equal(t, first, v.CountOfRecipients())
}

func TestRenderCSV_RoundTrip(t *testing.T) {
	rows := [][]string{
		{"email address", "name", "note"},
		{"a@x.ca", "Alice, Jr.", `said "hi"`},
		{"b@x.ca", "Bob", "semi; colon"},
	}

	v := Parse(RenderCSV(rows, true), models.TemplateTypeEmail, []string{"name"}, livePolicy(10, "email"), 10)
	assert.Equal(t, rows[0], v.Headers())

	var got [][]string
	for row := range v.Rows() {
		got = append(got, row.Values())
	}
	assert.Equal(t, rows[1:], got)
}

func TestRenderCSV_BOMAndCRLF(t *testing.T) {
	out := RenderCSV([][]string{{"a", "b"}, {"1", "2"}}, true)
	assert.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "a,b\r\n1,2\r\n", string(out[len(utf8BOM):]))
}

// ==========================
// Spreadsheet Formats
// ==========================

func TestFromFile_Formats(t *testing.T) {
	rows := [][]string{{"email address", "name"}, {"a@x.ca", "Alice"}}
	want := "email address,name\r\na@x.ca,Alice\r\n"

	tests := []struct {
		name string
		file string
		data []byte
	}{
		{"csv with BOM and LF", "a.csv", append(append([]byte{}, utf8BOM...), []byte("email address,name\na@x.ca,Alice\n\n")...)},
		{"tsv", "a.tsv", []byte("email address\tname\r\na@x.ca\tAlice")},
		{"xlsx", "a.xlsx", buildXLSX(t, rows)},
		{"xlsm", "a.XLSM", buildXLSX(t, rows)},
		{"ods", "a.ods", buildODS(t, `<table:table table:name="Sheet1">
<table:table-row><table:table-cell office:value-type="string"><text:p>email address</text:p></table:table-cell><table:table-cell><text:p>name</text:p></table:table-cell><table:table-cell table:number-columns-repeated="1000"/></table:table-row>
<table:table-row><table:table-cell><text:p>a@x.ca</text:p></table:table-cell><table:table-cell><text:p><text:span>Ali</text:span>ce</text:p></table:table-cell></table:table-row>
<table:table-row table:number-rows-repeated="1048570"><table:table-cell table:number-columns-repeated="1024"/></table:table-row>
</table:table>`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet, err := FromFile(tt.file, tt.data)
			require.NoError(t, err)
			assert.Equal(t, want, string(sheet.Data))
		})
	}
}

func TestFromFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
		code apperrors.ErrorCode
	}{
		{"unsupported extension", "a.pdf", []byte("x"), apperrors.ErrCodeInvalidSpreadsheet},
		{"invalid utf-8", "a.csv", []byte{0xff, 0xfe, 'a'}, apperrors.ErrCodeInvalidSpreadsheet},
		{"broken xlsx archive", "a.xlsx", []byte("not a zip"), apperrors.ErrCodeInvalidSpreadsheet},
		{"broken ods archive", "a.ods", []byte("not a zip"), apperrors.ErrCodeInvalidSpreadsheet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromFile(tt.file, tt.data)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.code))
			stdErr, _ := apperrors.AsStandardError(err)
			assert.Contains(t, stdErr.Message, tt.file)
		})
	}
}

func TestCanHandle(t *testing.T) {
	assert.True(t, CanHandle("Q1 Contacts.XLSX"))
	assert.True(t, CanHandle("list.ods"))
	assert.False(t, CanHandle("list.numbers"))
	assert.False(t, CanHandle("csv"))
}
