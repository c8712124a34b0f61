package document

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/charmap"
)

// extractText decodes UTF-8, falling back to ISO-8859-1 which maps every byte.
func extractText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return strings.TrimSpace(string(data)), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(decoded)), nil
}

func extractCSV(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var lines []string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("Row %d: %s", len(lines)+1, strings.Join(row, ", ")))
	}
	if len(lines) == 0 {
		return "[Empty CSV file]", nil
	}
	return strings.Join(lines, "\n"), nil
}

func extractPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= rdr.NumPage(); i++ {
		pg := rdr.Page(i)
		if pg.V.IsNull() {
			continue
		}
		txt, err := pg.GetPlainText(nil)
		if err != nil {
			// image-only pages have no text layer
			continue
		}
		sb.WriteString(txt)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

// extractDOCX reads word/document.xml and returns one line per paragraph.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("word/document.xml not found")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	dec := xml.NewDecoder(rc)

	var (
		paragraphs []string
		current    strings.Builder
		inPara     bool
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				inPara = true
				current.Reset()
			case "t":
				inText = true
			case "tab":
				current.WriteString("\t")
			case "br":
				current.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				if inPara {
					paragraphs = append(paragraphs, current.String())
				}
				inPara = false
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	return strings.TrimSpace(strings.Join(paragraphs, "\n")), nil
}

func extractJSON(data []byte) (string, error) {
	if !gjson.ValidBytes(data) {
		return "", errors.New("invalid JSON document")
	}
	root := gjson.ParseBytes(data)
	switch {
	case root.IsObject():
		return strings.Join(flattenObject(root, 0), "\n"), nil
	case root.IsArray():
		return strings.Join(flattenArray(root, 0), "\n"), nil
	default:
		return scalarText(root), nil
	}
}

func flattenObject(obj gjson.Result, indent int) []string {
	pad := strings.Repeat("  ", indent)
	var lines []string
	obj.ForEach(func(key, value gjson.Result) bool {
		lines = append(lines, flattenEntry(pad+key.String(), value, indent)...)
		return true
	})
	return lines
}

func flattenArray(arr gjson.Result, indent int) []string {
	pad := strings.Repeat("  ", indent)
	var lines []string
	n := 0
	arr.ForEach(func(_, value gjson.Result) bool {
		n++
		lines = append(lines, flattenEntry(pad+"Item "+strconv.Itoa(n), value, indent)...)
		return true
	})
	return lines
}

func flattenEntry(label string, value gjson.Result, indent int) []string {
	switch {
	case value.IsObject():
		return append([]string{label + ":"}, flattenObject(value, indent+1)...)
	case value.IsArray():
		return append([]string{label + ":"}, flattenArray(value, indent+1)...)
	default:
		return []string{label + ": " + scalarText(value)}
	}
}

func scalarText(v gjson.Result) string {
	switch v.Type {
	case gjson.Number:
		return v.Raw
	case gjson.Null:
		return "null"
	}
	return v.String()
}
