package host

import "strings"

// QuoteJS 将 s 编码为单引号 JavaScript 字符串字面量。
func QuoteJS(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\u2028':
			b.WriteString(`\u2028`)
		case '\u2029':
			b.WriteString(`\u2029`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// Invocation 生成调用 callback 的脚本，参数均为字符串字面量。
func Invocation(callback string, args ...string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = QuoteJS(a)
	}
	return callback + "(" + strings.Join(quoted, ",") + ")"
}
