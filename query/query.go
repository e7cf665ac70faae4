package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// QueryType 查询类型
type QueryType string

const (
	QueryTypeBool     QueryType = "bool"
	QueryTypeTerm     QueryType = "term"
	QueryTypeMatch    QueryType = "match"
	QueryTypeRange    QueryType = "range"
	QueryTypePrefix   QueryType = "prefix"
	QueryTypeWildcard QueryType = "wildcard"
)

// All 匹配索引中的全部文档
const All = "*"

// Query 查询节点，String 返回搜索引擎的查询语句
type Query interface {
	Type() QueryType
	String() string
}

// EscapeValue 转义查询值中除字母、数字、下划线以外的字符
func EscapeValue(s string) string {
	var buf strings.Builder
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			buf.WriteByte('\\')
		}
		buf.WriteRune(r)
	}
	return buf.String()
}

// formatNumber 时间按毫秒时间戳，布尔按 1/0，与字段的存储格式一致
func formatNumber(v any) string {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", n)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", n)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case time.Time:
		return strconv.FormatInt(n.UnixMilli(), 10)
	case bool:
		if n {
			return "1"
		}
		return "0"
	case string:
		return n
	}
	return fmt.Sprint(v)
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, time.Time:
		return true
	}
	return false
}

// group 组合查询在作为子句时加括号
func group(q Query) string {
	s := q.String()
	if b, ok := q.(*BoolQuery); ok && b.clauses() > 1 {
		return "(" + s + ")"
	}
	return s
}
