package ifc

import (
	"strconv"
	"strings"
)

// SplitAttributes splits the text between the outer parentheses of a record
// into its top-level items. Commas nested inside parentheses or string
// literals do not split. Items are trimmed but otherwise returned raw.
func SplitAttributes(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var items []string
	depth := 0
	inQuote := false
	start := 0

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			// '' inside a literal is an escaped quote and toggles twice
			if c == '\'' {
				inQuote = false
			}
			continue
		}
		switch c {
		case '\'':
			inQuote = true
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				items = append(items, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	items = append(items, strings.TrimSpace(s[start:]))
	return items
}

// normalizeAttribute maps the null token to "" and unquotes string literals.
func normalizeAttribute(raw string) string {
	if raw == "$" {
		return ""
	}
	if isQuoted(raw) {
		return unquote(raw)
	}
	return raw
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\''
}

func unquote(s string) string {
	return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
}

// StripQuotes removes one pair of surrounding single or double quotes.
func StripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// RefID parses a single "#<id>" token.
func RefID(tok string) (int, bool) {
	tok = strings.TrimSpace(tok)
	if len(tok) < 2 || tok[0] != '#' {
		return 0, false
	}
	id, err := strconv.Atoi(tok[1:])
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// RefList parses an aggregate such as "(#1,#2,#3)" into ids. A bare "#id"
// yields a one-element list. Items that are not references are ignored.
func RefList(tok string) []int {
	tok = strings.TrimSpace(tok)
	if id, ok := RefID(tok); ok {
		return []int{id}
	}
	if len(tok) < 2 || tok[0] != '(' || tok[len(tok)-1] != ')' {
		return nil
	}

	var ids []int
	for _, item := range SplitAttributes(tok[1 : len(tok)-1]) {
		if id, ok := RefID(item); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// scanReferences collects every #id in raw record text, skipping string
// literals.
func scanReferences(raw string) []int {
	var refs []int
	inQuote := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '\'' {
			inQuote = !inQuote
			continue
		}
		if inQuote || c != '#' {
			continue
		}
		j := i + 1
		for j < len(raw) && raw[j] >= '0' && raw[j] <= '9' {
			j++
		}
		if j > i+1 {
			if id, err := strconv.Atoi(raw[i+1 : j]); err == nil {
				refs = append(refs, id)
			}
		}
		i = j - 1
	}
	return refs
}

// ParseMeasure reads a numeric attribute. Typed values such as
// IFCVOLUMEMEASURE(12.5) are unwrapped first.
func ParseMeasure(tok string) (float64, bool) {
	tok = strings.TrimSpace(tok)
	if open := strings.IndexByte(tok, '('); open >= 0 && strings.HasSuffix(tok, ")") {
		tok = strings.TrimSpace(tok[open+1 : len(tok)-1])
	}
	if tok == "" || tok == "$" || tok == "*" {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Enum strips the surrounding dots from an enumeration value (".MILLI." -> "MILLI").
func Enum(tok string) string {
	return strings.Trim(strings.TrimSpace(tok), ".")
}
