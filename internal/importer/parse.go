package importer

import (
	"errors"
	"strings"

	"github.com/letteros/letteros/internal/domain"
)

// ErrNoEmailColumn is returned when no header looks like an email column.
var ErrNoEmailColumn = errors.New("no email column found in header")

var (
	// Checked in order, so "email" wins over a looser "mail" match.
	emailTokens = []string{"email", "e-mail", "correo", "mail"}
	nameTokens  = []string{"full name", "nombre", "name"}
)

// Candidate is one row accepted for import.
type Candidate struct {
	Email string   `json:"email"`
	Name  string   `json:"name,omitempty"`
	Tags  []string `json:"tags"`
}

// Columns describes how the header was interpreted.
type Columns struct {
	Email string   `json:"email"`
	Name  string   `json:"name,omitempty"`
	Tags  []string `json:"tags"`

	emailIdx int
	nameIdx  int
	tagIdx   []int
}

// Preview is the result of parsing a file against an existing list.
type Preview struct {
	Columns    Columns     `json:"columns"`
	Candidates []Candidate `json:"-"`
	Sample     []Candidate `json:"sample"`
	Total      int         `json:"total"`

	// DuplicatesInFile counts rows repeating an email seen earlier in the
	// same file; DuplicatesExisting counts rows whose email is already on
	// the list. DuplicateCount is their sum.
	DuplicatesInFile   int `json:"duplicatesInFile"`
	DuplicatesExisting int `json:"duplicatesExisting"`
	DuplicateCount     int `json:"duplicateCount"`
}

// ParseLine splits one CSV line on commas outside double quotes. Quotes are
// removed, a doubled quote inside a quoted field is a literal quote, and
// fields are trimmed.
func ParseLine(line string) []string {
	var (
		fields   []string
		cur      strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, strings.TrimSpace(cur.String()))
}

// SplitLines splits data into lines, dropping blank ones and a UTF-8 BOM.
func SplitLines(data string) []string {
	data = strings.TrimPrefix(data, "\ufeff")
	raw := strings.Split(data, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// DetectColumns finds the email column, an optional name column, and treats
// every other non-empty header as a tag column.
func DetectColumns(header []string) (Columns, error) {
	cols := Columns{Tags: []string{}}
	cols.emailIdx = findColumn(header, emailTokens, -1)
	if cols.emailIdx < 0 {
		return cols, ErrNoEmailColumn
	}
	cols.Email = header[cols.emailIdx]
	cols.nameIdx = findColumn(header, nameTokens, cols.emailIdx)
	if cols.nameIdx >= 0 {
		cols.Name = header[cols.nameIdx]
	}
	for i, h := range header {
		if i == cols.emailIdx || i == cols.nameIdx || h == "" {
			continue
		}
		cols.tagIdx = append(cols.tagIdx, i)
		cols.Tags = append(cols.Tags, h)
	}
	return cols, nil
}

// TagFor builds the tag a cell contributes under column. Boolean-like true
// values give a presence tag, false values and empty cells give none, and
// anything else gives "column:value".
func TagFor(column, cell string) (string, bool) {
	cell = strings.TrimSpace(cell)
	switch strings.ToLower(cell) {
	case "":
		return "", false
	case "true", "1":
		return column, true
	case "false", "0":
		return "", false
	}
	return column + ":" + cell, true
}

// Parse reads a whole file. existing is the user's current list, used for
// the second dedup tier; previewRows caps the sample.
func Parse(data string, existing []domain.Subscriber, previewRows int) (*Preview, error) {
	lines := SplitLines(data)
	if len(lines) == 0 {
		return nil, ErrNoEmailColumn
	}
	cols, err := DetectColumns(ParseLine(lines[0]))
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		known[domain.NormalizeEmail(s.Email)] = struct{}{}
	}
	seen := make(map[string]struct{})

	p := &Preview{Columns: cols, Candidates: []Candidate{}}
	for _, line := range lines[1:] {
		fields := ParseLine(line)
		email := domain.NormalizeEmail(cell(fields, cols.emailIdx))
		if !strings.Contains(email, "@") {
			continue
		}
		if _, ok := known[email]; ok {
			p.DuplicatesExisting++
			seen[email] = struct{}{}
			continue
		}
		if _, ok := seen[email]; ok {
			p.DuplicatesInFile++
			continue
		}
		seen[email] = struct{}{}

		c := Candidate{Email: email, Name: cell(fields, cols.nameIdx), Tags: []string{}}
		for j, idx := range cols.tagIdx {
			if tag, ok := TagFor(cols.Tags[j], cell(fields, idx)); ok {
				c.Tags = append(c.Tags, tag)
			}
		}
		p.Candidates = append(p.Candidates, c)
	}

	p.Total = len(p.Candidates)
	p.DuplicateCount = p.DuplicatesInFile + p.DuplicatesExisting
	n := previewRows
	if n <= 0 || n > p.Total {
		n = p.Total
	}
	p.Sample = p.Candidates[:n]
	return p, nil
}

// findColumn returns the first header containing the earliest matching
// token, case-insensitively, or -1.
func findColumn(header []string, tokens []string, skip int) int {
	for _, t := range tokens {
		for i, h := range header {
			if i != skip && strings.Contains(strings.ToLower(h), t) {
				return i
			}
		}
	}
	return -1
}

func cell(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}
