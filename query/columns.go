package query

import (
	"fmt"
	"regexp"
	"strings"
)

// ColumnMap maps lower-cased header names and column letters to canonical
// column letters. It is built fresh per table per statement and never
// mutated after construction.
type ColumnMap map[string]string

// reservedWords are never treated as column references during resolution.
var reservedWords = map[string]struct{}{
	"and": {}, "or": {}, "is": {}, "not": {}, "null": {},
	"true": {}, "false": {}, "contains": {}, "starts": {}, "ends": {},
	"with": {}, "date": {}, "now": {}, "today": {},
}

// IndexToColumn converts a zero-based column index to a spreadsheet column
// letter: 0 -> "A", 25 -> "Z", 26 -> "AA", 27 -> "AB".
func IndexToColumn(index int) string {
	if index < 0 {
		return ""
	}
	letters := ""
	for index >= 0 {
		letters = string(rune('A'+index%26)) + letters
		index = index/26 - 1
	}
	return letters
}

// ColumnToIndex converts a column letter to a zero-based index, or -1 for
// anything that is not a pure letter sequence.
func ColumnToIndex(letter string) int {
	if letter == "" {
		return -1
	}
	index := 0
	for _, ch := range strings.ToUpper(letter) {
		if ch < 'A' || ch > 'Z' {
			return -1
		}
		index = index*26 + int(ch-'A') + 1
	}
	return index - 1
}

// BuildColumnMap builds the identifier resolution table for one set of
// headers. Column letters always claim their own name first, so a header
// literally named "B" cannot shadow column letter B; header names are then
// mapped lower-cased and trimmed unless a letter already claimed the key.
func BuildColumnMap(headers []string) ColumnMap {
	cols := make(ColumnMap, len(headers)*2)

	for i := range headers {
		letter := IndexToColumn(i)
		cols[strings.ToLower(letter)] = letter
	}

	for i, header := range headers {
		name := strings.ToLower(strings.TrimSpace(header))
		if name == "" {
			continue
		}
		if _, taken := cols[name]; !taken {
			cols[name] = IndexToColumn(i)
		}
		// Joined tables carry alias-qualified headers; register the bare
		// name too so unambiguous columns resolve without the qualifier.
		if dot := strings.LastIndex(name, "."); dot >= 0 && dot+1 < len(name) {
			base := name[dot+1:]
			if _, taken := cols[base]; !taken {
				cols[base] = IndexToColumn(i)
			}
		}
	}

	return cols
}

// Resolve looks an identifier up, accepting header names, column letters and
// alias-qualified forms (alias.column, :table.column). The full qualified
// form is tried first, then the bare column name. Returns the canonical
// letter and whether resolution succeeded.
func (m ColumnMap) Resolve(ref string) (string, bool) {
	ref = strings.Trim(strings.TrimSpace(ref), `"'`)
	ref = strings.TrimPrefix(ref, ":")
	if letter, ok := m[strings.ToLower(ref)]; ok {
		return letter, true
	}
	if dot := strings.LastIndex(ref, "."); dot >= 0 {
		ref = strings.Trim(ref[dot+1:], `"'`)
	}
	letter, ok := m[strings.ToLower(ref)]
	return letter, ok
}

// operatorFollows matches the operator that must trail an identifier for it
// to count as a column reference: comparison operators, string operators,
// or IS.
const operatorFollows = `(\s*(?:<=|>=|<>|!=|=|<|>)|\s+(?i:IS|CONTAINS|STARTS\s+WITH|ENDS\s+WITH)\b)`

var (
	quotedIdentRe = regexp.MustCompile(`(?:"((?:""|[^"])*)"|'((?:''|[^'])*)')` + operatorFollows)
	bareIdentRe   = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)` + operatorFollows)
	quotedRe      = regexp.MustCompile(`"(?:""|\\.|[^"\\])*"|'(?:''|\\.|[^'\\])*'`)
)

// ResolveColumnNames rewrites header names in a clause to canonical column
// letters. Only identifiers immediately followed by a comparison operator,
// string operator or IS are rewritten; reserved words and unresolved tokens
// are left unchanged for later stages to reject. Quoted identifiers are
// handled first, then remaining quoted strings are masked with placeholders
// so value literals are never re-resolved.
func ResolveColumnNames(clause string, cols ColumnMap) string {
	// Pass 1: quoted identifiers followed by an operator.
	resolved := quotedIdentRe.ReplaceAllStringFunc(clause, func(match string) string {
		sub := quotedIdentRe.FindStringSubmatch(match)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		if letter, ok := cols.Resolve(name); ok {
			return letter + sub[3]
		}
		return match
	})

	// Pass 2: mask remaining quoted strings (value literals).
	var placeholders []string
	masked := quotedRe.ReplaceAllStringFunc(resolved, func(match string) string {
		placeholders = append(placeholders, match)
		return fmt.Sprintf("\x00%d\x00", len(placeholders)-1)
	})

	// Pass 3: bare identifiers followed by an operator.
	masked = bareIdentRe.ReplaceAllStringFunc(masked, func(match string) string {
		sub := bareIdentRe.FindStringSubmatch(match)
		name := sub[1]
		if _, reserved := reservedWords[strings.ToLower(name)]; reserved {
			return match
		}
		if letter, ok := cols.Resolve(name); ok {
			return letter + sub[2]
		}
		return match
	})

	// Pass 4: restore the masked literals.
	for i, original := range placeholders {
		masked = strings.Replace(masked, fmt.Sprintf("\x00%d\x00", i), original, 1)
	}

	return masked
}
