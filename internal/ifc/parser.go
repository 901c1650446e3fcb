package ifc

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// maxStatementSize bounds a single physical line handed to the scanner.
// Large triangulated geometry lists can run to several megabytes.
const maxStatementSize = 64 * 1024 * 1024

var recordPattern = regexp.MustCompile(`(?s)^#(\d+)\s*=\s*([A-Za-z0-9_]+)\s*\((.*)\)$`)

// recordStart matches a physical line that opens a new #id= record.
var recordStart = regexp.MustCompile(`^\s*#\d+\s*=`)

// section tracks where in the physical file the scanner currently is.
type section int

const (
	sectionNone section = iota
	sectionHeader
	sectionData
)

// Parse reads a STEP physical file and returns the populated entity store.
//
// Statements are terminated by ';' outside string literals and may span
// several lines. Only statements of the data section are considered; a text
// without any section markers is treated as data. Statements that do not
// match the record shape are counted and skipped. The only errors returned
// come from reading r.
func Parse(r io.Reader) (*Store, error) {
	store := newStore()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStatementSize)

	var stmt strings.Builder
	inQuote := false
	inComment := false
	current := sectionNone

	flush := func() {
		text := strings.TrimSpace(stmt.String())
		stmt.Reset()
		if text == "" {
			return
		}

		switch strings.ToUpper(text) {
		case "HEADER":
			current = sectionHeader
			return
		case "DATA":
			current = sectionData
			return
		case "ENDSEC":
			current = sectionNone
			return
		}

		if current == sectionHeader || text[0] != '#' {
			return
		}
		entity, err := ParseLine(text)
		if err != nil {
			store.skipped++
			return
		}
		store.add(entity)
	}

	for scanner.Scan() {
		line := scanner.Text()
		// a string literal left open never runs into the next record
		if inQuote && recordStart.MatchString(line) {
			if current != sectionHeader && strings.HasPrefix(strings.TrimSpace(stmt.String()), "#") {
				store.skipped++
			}
			stmt.Reset()
			inQuote = false
		}
		for i := 0; i < len(line); i++ {
			c := line[i]
			if inComment {
				if c == '*' && i+1 < len(line) && line[i+1] == '/' {
					inComment = false
					i++
				}
				continue
			}
			if inQuote {
				if c == '\'' {
					inQuote = false
				}
				stmt.WriteByte(c)
				continue
			}
			switch {
			case c == '\'':
				inQuote = true
				stmt.WriteByte(c)
			case c == '/' && i+1 < len(line) && line[i+1] == '*':
				inComment = true
				i++
			case c == ';':
				flush()
			default:
				stmt.WriteByte(c)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read IFC data: %w", err)
	}
	// a trailing record without terminator is still worth keeping
	flush()

	store.finalize()
	return store, nil
}

// ParseString parses IFC text held in memory.
func ParseString(s string) *Store {
	// strings.Reader never fails, so neither does Parse
	store, _ := Parse(strings.NewReader(s))
	return store
}

// ParseLine parses a single #<id>=<TYPE>(<attributes>) statement. A trailing
// ';' is accepted.
func ParseLine(stmt string) (*Entity, error) {
	stmt = strings.TrimSpace(stmt)
	stmt = strings.TrimSuffix(stmt, ";")
	stmt = strings.TrimSpace(stmt)

	m := recordPattern.FindStringSubmatch(stmt)
	if m == nil {
		return nil, fmt.Errorf("%w: %.60q", ErrMalformedRecord, stmt)
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad id %q", ErrMalformedRecord, m[1])
	}

	raw := SplitAttributes(m[3])
	var attrs []string
	for _, tok := range raw {
		attrs = append(attrs, normalizeAttribute(tok))
	}

	entity := &Entity{
		ID:         id,
		Type:       strings.ToUpper(m[2]),
		Attributes: attrs,
		refs:       scanReferences(m[3]),
	}

	switch {
	case entity.Type == TypeMaterial:
		entity.Name = entity.Attr(materialNameAttribute)
	case len(raw) > rootedNameAttribute && isQuoted(raw[rootedGlobalIDAttribute]) &&
		len(attrs[rootedGlobalIDAttribute]) == globalIDLength:
		entity.GlobalID = attrs[rootedGlobalIDAttribute]
		entity.Name = attrs[rootedNameAttribute]
	}

	return entity, nil
}

// finalize sorts the per-type id lists so lookups are deterministic
// regardless of file order.
func (s *Store) finalize() {
	for _, ids := range s.byType {
		sort.Ints(ids)
	}
}
