package engine

import (
	"regexp"
	"strings"

	"github.com/whichguy/sheetsql/query"
)

type itemKind int

const (
	itemStar itemKind = iota
	itemColumn
	itemAggregate
	itemExpression
)

// selectItem is one parsed entry of a SELECT list.
type selectItem struct {
	kind  itemKind
	text  string
	label string
	// index is the source column index for itemColumn.
	index int
	// fn and argIndex describe an aggregate call; argIndex is -1 for
	// COUNT(*).
	fn       string
	argIndex int
	// expr is the placeholder form of an arithmetic expression.
	expr string
}

var (
	aggregateCallRe = regexp.MustCompile(`(?i)^(COUNT|SUM|AVG|MIN|MAX)\s*\((.+)\)$`)
	asLabelRe       = regexp.MustCompile(`(?i)^(.+?)\s+AS\s+([A-Za-z_][A-Za-z0-9_]*)$`)
)

// parseSelectItems parses a SELECT list against one table's columns. Every
// item is a wildcard, a column reference, an aggregate call or an arithmetic
// expression, each with an optional `AS label`.
func parseSelectItems(clause string, cols query.ColumnMap, headers []string) ([]selectItem, error) {
	var items []selectItem
	for _, part := range query.SplitList(clause) {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, query.NewValidationError("selectClause", clause, "non-empty SELECT items")
		}

		label := ""
		if sub := asLabelRe.FindStringSubmatch(part); sub != nil {
			part = strings.TrimSpace(sub[1])
			label = sub[2]
		}

		item, err := parseSelectItem(part, cols, headers)
		if err != nil {
			return nil, err
		}
		if label != "" {
			item.label = label
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, query.NewValidationError("selectClause", clause, "column list or *")
	}
	return items, nil
}

func parseSelectItem(text string, cols query.ColumnMap, headers []string) (selectItem, error) {
	if text == "*" {
		return selectItem{kind: itemStar, text: text}, nil
	}

	if sub := aggregateCallRe.FindStringSubmatch(text); sub != nil {
		fn := strings.ToUpper(sub[1])
		arg := strings.TrimSpace(sub[2])
		if arg == "*" {
			if fn != "COUNT" {
				return selectItem{}, query.NewValidationError("selectClause", text, "* argument only with COUNT")
			}
			return selectItem{kind: itemAggregate, text: text, label: text, fn: fn, argIndex: -1}, nil
		}
		letter, ok := cols.Resolve(arg)
		if !ok {
			return selectItem{}, query.NewValidationError("selectClause", arg, "known column name or letter")
		}
		return selectItem{
			kind:     itemAggregate,
			text:     text,
			label:    text,
			fn:       fn,
			argIndex: query.ColumnToIndex(letter),
		}, nil
	}

	if query.IsExpression(text) {
		return selectItem{
			kind:  itemExpression,
			text:  text,
			label: text,
			expr:  query.ParseExpression(text, cols),
		}, nil
	}

	letter, ok := cols.Resolve(text)
	if !ok {
		return selectItem{}, query.NewValidationError("selectClause", text, "known column name or letter")
	}
	idx := query.ColumnToIndex(letter)
	label := letter
	if idx < len(headers) && strings.TrimSpace(headers[idx]) != "" {
		label = headers[idx]
	}
	return selectItem{kind: itemColumn, text: text, label: label, index: idx}, nil
}

// expandStar replaces wildcard items with one column item per header.
func expandStar(items []selectItem, headers []string) []selectItem {
	var out []selectItem
	for _, item := range items {
		if item.kind != itemStar {
			out = append(out, item)
			continue
		}
		for i, header := range headers {
			label := header
			if strings.TrimSpace(label) == "" {
				label = query.IndexToColumn(i)
			}
			out = append(out, selectItem{kind: itemColumn, text: label, label: label, index: i})
		}
	}
	return out
}

// hasAggregate reports whether any SELECT item is an aggregate call.
func hasAggregate(items []selectItem) bool {
	for _, item := range items {
		if item.kind == itemAggregate {
			return true
		}
	}
	return false
}
