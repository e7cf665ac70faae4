package query

import "fmt"

// RangeQuery 范围查询，未设置的边界为无穷
type RangeQuery struct {
	Field string `json:"field"`
	Gt    any    `json:"gt,omitempty"`
	Gte   any    `json:"gte,omitempty"`
	Lt    any    `json:"lt,omitempty"`
	Lte   any    `json:"lte,omitempty"`
}

func (q *RangeQuery) Type() QueryType {
	return QueryTypeRange
}

func (q *RangeQuery) String() string {
	lo := "-inf"
	if q.Gt != nil {
		lo = "(" + formatNumber(q.Gt)
	} else if q.Gte != nil {
		lo = formatNumber(q.Gte)
	}

	hi := "+inf"
	if q.Lt != nil {
		hi = "(" + formatNumber(q.Lt)
	} else if q.Lte != nil {
		hi = formatNumber(q.Lte)
	}

	return fmt.Sprintf("@%s:[%s %s]", q.Field, lo, hi)
}
