package query

import (
	"fmt"
	"strings"
)

// WildcardQuery 通配符查询，* 匹配任意数量字符，? 匹配单个字符
type WildcardQuery struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (q *WildcardQuery) Type() QueryType {
	return QueryTypeWildcard
}

func (q *WildcardQuery) String() string {
	pattern := strings.ReplaceAll(q.Value, "'", `\'`)
	return fmt.Sprintf("@%s:w'%s'", q.Field, pattern)
}
