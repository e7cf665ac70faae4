package query

import "fmt"

// PrefixQuery 前缀查询
type PrefixQuery struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *PrefixQuery) Type() QueryType {
	return QueryTypePrefix
}

func (q *PrefixQuery) String() string {
	if q.Field == "" {
		return EscapeValue(q.Value) + "*"
	}
	return fmt.Sprintf("@%s:%s*", q.Field, EscapeValue(q.Value))
}
