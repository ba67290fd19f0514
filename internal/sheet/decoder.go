// Package sheet normalizes heterogeneous wire encodings of spreadsheet
// payloads into a row-major cell grid.
//
// Producers disagree on whether to base64-wrap binary payloads for a
// text-biased transport. A declared binary spreadsheet media type (or the
// generic octet-stream type) means the body is the literal workbook; any
// other declared type, including none at all, means the body is a base64
// string whose decoding yields the workbook.
package sheet

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheets reports a workbook without a single sheet to read.
var ErrNoSheets = errors.New("sheet: workbook contains no sheets")

// Decode turns the raw message body into the first sheet's rows.
func Decode(body []byte, contentType string) ([][]string, error) {
	raw := body
	if !IsBinarySpreadsheet(contentType) {
		decoded, err := decodeBase64(body)
		if err != nil {
			return nil, fmt.Errorf("sheet: decode base64 payload: %w", err)
		}
		raw = decoded
	}

	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("sheet: open workbook: %w", err)
	}
	defer wb.Close()

	name := wb.GetSheetName(0)
	if name == "" {
		return nil, ErrNoSheets
	}
	rows, err := wb.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("sheet: read rows from %q: %w", name, err)
	}
	return rows, nil
}

// IsBinarySpreadsheet reports whether the declared content type marks the
// body as a literal binary workbook.
func IsBinarySpreadsheet(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return strings.Contains(ct, "spreadsheet") || ct == "application/octet-stream"
}

func decodeBase64(body []byte) ([]byte, error) {
	s := strings.TrimSpace(string(body))
	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil {
		return decoded, nil
	}
	// Some producers omit padding.
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
