package orm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"fred", "fred"},
		{"a,b", `a\,b`},
		{"a.b-c", `a\.b\-c`},
		{"{x}", `\{x\}`},
		{`a\b`, `a\b`},
		{"a b", "a b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.in), tt.in)
		assert.Equal(t, tt.in, Unescape(tt.want), tt.want)
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	reserved := `,.<>{}[]"':;!@#$%^&*()-+=~`

	t.Run("every reserved character is escaped", func(t *testing.T) {
		escaped := Escape(reserved)
		assert.Equal(t, len(reserved)*2, len(escaped))
		for _, c := range reserved {
			assert.Contains(t, escaped, `\`+string(c))
		}
		assert.Equal(t, reserved, Unescape(escaped))
	})

	t.Run("combinations", func(t *testing.T) {
		alphabet := []string{",", ".", "-", "~", `\`, "a", " ", "中", "@", `"`}
		var inputs []string
		for _, a := range alphabet {
			for _, b := range alphabet {
				for _, c := range alphabet {
					inputs = append(inputs, a+b+c)
				}
			}
		}
		inputs = append(inputs,
			`\,`, `\\,`, `,\`, `\\\`, `a\-b`, `\`+reserved, reserved+`\`,
			strings.Repeat(`\.`, 5), "fred@example.com", "1+1=2",
		)

		for _, s := range inputs {
			assert.Equal(t, s, Unescape(Escape(s)), "round trip of %q", s)
		}
	})

	t.Run("unescape leaves unknown sequences", func(t *testing.T) {
		assert.Equal(t, `\a\\`, Unescape(`\a\\`))
	})
}
