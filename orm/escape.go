package orm

import "strings"

// reservedChars 在搜索查询语法中有含义的标点
const reservedChars = `,.<>{}[]"':;!@#$%^&*()-+=~`

var escaper, unescaper = newCodec(reservedChars)

func newCodec(chars string) (*strings.Replacer, *strings.Replacer) {
	var escapePairs, unescapePairs []string
	for _, c := range chars {
		escapePairs = append(escapePairs, string(c), `\`+string(c))
		unescapePairs = append(unescapePairs, `\`+string(c), string(c))
	}
	return strings.NewReplacer(escapePairs...), strings.NewReplacer(unescapePairs...)
}

// Escape 在每个保留字符前加反斜杠
//
// 反斜杠本身不转义，Unescape 从左到右匹配，因此 Unescape(Escape(s)) == s
// 对原文中已有的 `\` 紧邻保留字符的情况同样成立
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape 是 Escape 的逆变换
func Unescape(s string) string {
	return unescaper.Replace(s)
}
