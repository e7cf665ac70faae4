package query

import "strings"

// BoolQuery 布尔查询
//
// Must 与 Filter 之间是 AND，Should 之间是 OR，MustNot 逐个取反；全部为空时匹配全部文档
type BoolQuery struct {
	Must    []Query `json:"must,omitempty"`
	Should  []Query `json:"should,omitempty"`
	MustNot []Query `json:"must_not,omitempty"`
	Filter  []Query `json:"filter,omitempty"`
}

func (q *BoolQuery) Type() QueryType {
	return QueryTypeBool
}

func (q *BoolQuery) clauses() int {
	n := len(q.Must) + len(q.Filter) + len(q.MustNot)
	if len(q.Should) > 0 {
		n++
	}
	return n
}

func (q *BoolQuery) String() string {
	var parts []string
	for _, query := range q.Must {
		parts = append(parts, group(query))
	}
	for _, query := range q.Filter {
		parts = append(parts, group(query))
	}

	if len(q.Should) == 1 {
		parts = append(parts, group(q.Should[0]))
	} else if len(q.Should) > 1 {
		should := make([]string, 0, len(q.Should))
		for _, query := range q.Should {
			should = append(should, group(query))
		}
		parts = append(parts, "("+strings.Join(should, " | ")+")")
	}

	for _, query := range q.MustNot {
		s := query.String()
		if b, ok := query.(*BoolQuery); ok && b.clauses() > 0 {
			s = "(" + s + ")"
		}
		parts = append(parts, "-"+s)
	}

	if len(parts) == 0 {
		return All
	}
	return strings.Join(parts, " ")
}
