package store

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// queryMatcher MapStore 支持的查询子集：
//
//	*                  匹配全部文档
//	@field:[min max]   数值范围，支持 ( 开区间和 -inf/+inf
//	@field:{a|b}       tag 精确匹配其中之一
//	@field:term        文本字段包含词，term* 表示前缀
//	term               任意文本字段包含词
//	-clause            取反
//
// 空格分隔的多个子句之间是 AND 关系
type queryMatcher struct {
	clauses []queryClause
}

type queryClause struct {
	negate bool
	match  func(fields map[string]string) bool
}

func (m *queryMatcher) match(fields map[string]string) bool {
	for _, clause := range m.clauses {
		if clause.match(fields) == clause.negate {
			return false
		}
	}
	return true
}

func parseQuery(query string, def *IndexDefinition) (*queryMatcher, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty query")
	}

	matcher := &queryMatcher{}
	if query == "*" {
		return matcher, nil
	}

	tokens, err := splitQuery(query)
	if err != nil {
		return nil, err
	}
	for _, token := range tokens {
		clause, err := parseClause(token, def)
		if err != nil {
			return nil, err
		}
		matcher.clauses = append(matcher.clauses, clause)
	}
	return matcher, nil
}

// splitQuery 在括号外的空白处切分，反斜杠转义的字符保持原样
func splitQuery(query string) ([]string, error) {
	var tokens []string
	var buf strings.Builder
	depth := 0
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\\' && i+1 < len(query):
			buf.WriteByte(c)
			buf.WriteByte(query[i+1])
			i++
			continue
		case c == '[' || c == '{':
			depth++
		case c == ']' || c == '}':
			depth--
			if depth < 0 {
				return nil, errors.Errorf("unbalanced %q", c)
			}
		case (c == ' ' || c == '\t') && depth == 0:
			if buf.Len() > 0 {
				tokens = append(tokens, buf.String())
				buf.Reset()
			}
			continue
		}
		buf.WriteByte(c)
	}
	if depth != 0 {
		return nil, errors.New("unbalanced brackets")
	}
	if buf.Len() > 0 {
		tokens = append(tokens, buf.String())
	}
	return tokens, nil
}

func parseClause(token string, def *IndexDefinition) (queryClause, error) {
	clause := queryClause{}
	if strings.HasPrefix(token, "-") && len(token) > 1 {
		clause.negate = true
		token = token[1:]
	}

	if !strings.HasPrefix(token, "@") {
		var textFields []string
		for _, field := range def.Fields {
			if field.Type == IndexFieldText {
				textFields = append(textFields, field.Field)
			}
		}
		term := token
		clause.match = func(fields map[string]string) bool {
			for _, name := range textFields {
				if matchText(fields[name], term) {
					return true
				}
			}
			return false
		}
		return clause, nil
	}

	name, expr, ok := strings.Cut(token[1:], ":")
	if !ok || name == "" || expr == "" {
		return clause, errors.Errorf("syntax error at %q", token)
	}
	var field *IndexField
	for i := range def.Fields {
		if def.Fields[i].Field == name {
			field = &def.Fields[i]
			break
		}
	}
	if field == nil {
		return clause, errors.Errorf("unknown field %s", name)
	}

	switch {
	case strings.HasPrefix(expr, "["):
		if field.Type != IndexFieldNumeric {
			return clause, errors.Errorf("field %s is not numeric", name)
		}
		lo, hi, err := parseRange(expr)
		if err != nil {
			return clause, err
		}
		clause.match = func(fields map[string]string) bool {
			v, err := strconv.ParseFloat(fields[name], 64)
			return err == nil && lo(v) && hi(v)
		}
	case strings.HasPrefix(expr, "{"):
		if field.Type != IndexFieldTag {
			return clause, errors.Errorf("field %s is not a tag", name)
		}
		if !strings.HasSuffix(expr, "}") {
			return clause, errors.Errorf("syntax error at %q", token)
		}
		var wanted []string
		for _, tag := range strings.Split(expr[1:len(expr)-1], "|") {
			wanted = append(wanted, strings.ToLower(unescapeQuery(strings.TrimSpace(tag))))
		}
		clause.match = func(fields map[string]string) bool {
			for _, tag := range strings.Split(fields[name], ",") {
				tag = strings.ToLower(unescapeQuery(strings.TrimSpace(tag)))
				for _, w := range wanted {
					if tag == w {
						return true
					}
				}
			}
			return false
		}
	default:
		if field.Type != IndexFieldText {
			return clause, errors.Errorf("field %s is not a text field", name)
		}
		clause.match = func(fields map[string]string) bool {
			return matchText(fields[name], expr)
		}
	}
	return clause, nil
}

func parseRange(expr string) (func(float64) bool, func(float64) bool, error) {
	if !strings.HasSuffix(expr, "]") {
		return nil, nil, errors.Errorf("syntax error at %q", expr)
	}
	parts := strings.Fields(expr[1 : len(expr)-1])
	if len(parts) != 2 {
		return nil, nil, errors.Errorf("numeric range %q requires two bounds", expr)
	}

	lo, loExclusive, err := parseBound(parts[0])
	if err != nil {
		return nil, nil, err
	}
	hi, hiExclusive, err := parseBound(parts[1])
	if err != nil {
		return nil, nil, err
	}

	above := func(v float64) bool {
		if loExclusive {
			return v > lo
		}
		return v >= lo
	}
	below := func(v float64) bool {
		if hiExclusive {
			return v < hi
		}
		return v <= hi
	}
	return above, below, nil
}

func parseBound(s string) (float64, bool, error) {
	exclusive := strings.HasPrefix(s, "(")
	s = strings.TrimPrefix(s, "(")
	switch strings.ToLower(s) {
	case "-inf":
		return math.Inf(-1), exclusive, nil
	case "+inf", "inf":
		return math.Inf(1), exclusive, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, errors.Errorf("invalid numeric bound %q", s)
	}
	return v, exclusive, nil
}

// matchText 按分词匹配，term 含标点时退化为子串匹配
func matchText(value string, term string) bool {
	if value == "" {
		return false
	}
	v := strings.ToLower(unescapeQuery(value))
	t := strings.ToLower(unescapeQuery(term))

	prefix := strings.HasSuffix(t, "*")
	t = strings.TrimSuffix(t, "*")
	if t == "" {
		return false
	}

	if strings.IndexFunc(t, isSeparator) >= 0 {
		return strings.Contains(v, t)
	}
	for _, word := range strings.FieldsFunc(v, isSeparator) {
		if word == t || (prefix && strings.HasPrefix(word, t)) {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}

func unescapeQuery(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var buf strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}
