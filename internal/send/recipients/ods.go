// internal/send/recipients/ods.go
package recipients

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ODS caps on repeated rows and columns. LibreOffice pads sheets with a
// final row or column repeated up to the sheet limit.
const (
	odsMaxRepeatRows = 100000
	odsMaxRepeatCols = 1024
)

type odsCell struct {
	Repeat    int      `xml:"number-columns-repeated,attr"`
	ValueType string   `xml:"value-type,attr"`
	Value     string   `xml:"value,attr"`
	Paras     []odsPar `xml:"p"`
}

type odsPar struct {
	Inner string `xml:",innerxml"`
}

type odsRow struct {
	Repeat int       `xml:"number-rows-repeated,attr"`
	Cells  []odsCell `xml:"table-cell"`
}

// decodeODS reads the first table of an OpenDocument spreadsheet.
func decodeODS(data []byte) ([][]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open ods archive: %w", err)
	}

	var content *zip.File
	for _, f := range zr.File {
		if f.Name == "content.xml" {
			content = f
			break
		}
	}
	if content == nil {
		return nil, fmt.Errorf("ods archive has no content.xml")
	}

	rc, err := content.Open()
	if err != nil {
		return nil, fmt.Errorf("open content.xml: %w", err)
	}
	defer rc.Close()

	return readODSTable(rc)
}

func readODSTable(r io.Reader) ([][]string, error) {
	dec := xml.NewDecoder(r)
	var rows [][]string
	inTable := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse content.xml: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "table":
				if inTable {
					continue
				}
				inTable = true
			case "table-row":
				if !inTable {
					continue
				}
				var row odsRow
				if err := dec.DecodeElement(&row, &el); err != nil {
					return nil, fmt.Errorf("parse table row: %w", err)
				}
				cells := odsCells(row)
				repeat := row.Repeat
				if repeat < 1 {
					repeat = 1
				}
				if repeat > 1 && isBlank(cells) {
					continue
				}
				for i := 0; i < repeat && len(rows) < odsMaxRepeatRows; i++ {
					rows = append(rows, cells)
				}
			}
		case xml.EndElement:
			if el.Name.Local == "table" && inTable {
				return rows, nil
			}
		}
	}
	return rows, nil
}

func odsCells(row odsRow) []string {
	var out []string
	for _, c := range row.Cells {
		text := c.text()
		repeat := c.Repeat
		if repeat < 1 {
			repeat = 1
		}
		if repeat > odsMaxRepeatCols {
			repeat = odsMaxRepeatCols
		}
		for i := 0; i < repeat; i++ {
			out = append(out, text)
		}
	}
	// trailing padding cells
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func (c odsCell) text() string {
	if len(c.Paras) == 0 {
		return c.Value
	}
	parts := make([]string, 0, len(c.Paras))
	for _, p := range c.Paras {
		parts = append(parts, stripTags(p.Inner))
	}
	return strings.Join(parts, "\n")
}

// stripTags drops inline markup (spans, links) and expands <text:s/> runs.
func stripTags(inner string) string {
	var b strings.Builder
	dec := xml.NewDecoder(strings.NewReader("<x>" + inner + "</x>"))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.CharData:
			b.Write(el)
		case xml.StartElement:
			switch el.Name.Local {
			case "s":
				n := 1
				for _, a := range el.Attr {
					if a.Name.Local == "c" {
						if v, err := strconv.Atoi(a.Value); err == nil && v > 0 {
							n = v
						}
					}
				}
				b.WriteString(strings.Repeat(" ", n))
			case "tab":
				b.WriteString("\t")
			case "line-break":
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
