package query

import "fmt"

// TermQuery 精确匹配查询
//
// 数值与时间渲染成闭区间 @field:[v v]，其余渲染成 tag 匹配 @field:{v}
type TermQuery struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (q *TermQuery) Type() QueryType {
	return QueryTypeTerm
}

func (q *TermQuery) String() string {
	v := formatNumber(q.Value)
	if isNumber(q.Value) {
		return fmt.Sprintf("@%s:[%s %s]", q.Field, v, v)
	}
	return fmt.Sprintf("@%s:{%s}", q.Field, EscapeValue(v))
}
