package query

import (
	"fmt"
	"strings"
)

// MatchQuery 全文搜索查询，Field 为空时在全部文本字段中搜索
type MatchQuery struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *MatchQuery) Type() QueryType {
	return QueryTypeMatch
}

func (q *MatchQuery) String() string {
	words := strings.Fields(q.Value)
	for i, word := range words {
		words[i] = EscapeValue(word)
	}
	terms := strings.Join(words, " ")
	if len(words) > 1 {
		terms = "(" + terms + ")"
	}
	if q.Field == "" {
		return terms
	}
	return fmt.Sprintf("@%s:%s", q.Field, terms)
}
