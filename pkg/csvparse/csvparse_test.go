package csvparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		text string
		want [][]string
	}{
		{
			name: "simple rows",
			text: "a,b,c\n1,2,3\n",
			want: [][]string{{"a", "b", "c"}, {"1", "2", "3"}},
		},
		{
			name: "quoted comma and escaped quote",
			text: "name,note\nx,\"hello, \"\"world\"\"\"\n",
			want: [][]string{{"name", "note"}, {"x", `hello, "world"`}},
		},
		{
			name: "newline inside quotes",
			text: "\"line1\nline2\",b\n",
			want: [][]string{{"line1\nline2", "b"}},
		},
		{
			name: "crlf and bare cr terminators",
			text: "a,b\r\nc,d\re,f\n",
			want: [][]string{{"a", "b"}, {"c", "d"}, {"e", "f"}},
		},
		{
			name: "trailing row without terminator",
			text: "a,b\nc,d",
			want: [][]string{{"a", "b"}, {"c", "d"}},
		},
		{
			name: "fields are trimmed",
			text: "  a , \" b \" ,c  \n",
			want: [][]string{{"a", "b", "c"}},
		},
		{
			name: "trailing empty field",
			text: "a,\n",
			want: [][]string{{"a", ""}},
		},
		{
			name: "unterminated quote consumes rest of input",
			text: "a,\"open\nstill open,x",
			want: [][]string{{"a", "open\nstill open,x"}},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "blank line yields single empty field",
			text: "a\n\nb\n",
			want: [][]string{{"a"}, {""}, {"b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.text))
		})
	}
}

func TestParse_PreservesLiteralQuotedValue(t *testing.T) {
	literals := []string{
		`Portal, "Linux" build`,
		`a,b,"c"`,
		`""`,
		`x, y, z`,
	}

	for _, lit := range literals {
		quoted := `"` + replaceQuotes(lit) + `"`
		rows := Parse("h1,h2\n" + quoted + ",tail\n")
		if assert.Len(t, rows, 2) {
			assert.Equal(t, lit, rows[1][0])
			assert.Equal(t, "tail", rows[1][1])
		}
	}
}

func replaceQuotes(s string) string {
	out := make([]byte, 0, len(s)*2)
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			out = append(out, '"', '"')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func TestParse_StripsByteOrderMark(t *testing.T) {
	got := Parse("\ufeffFilename,Direct Download\nA.exe,https://x\n")
	assert.Equal(t, [][]string{{"Filename", "Direct Download"}, {"A.exe", "https://x"}}, got)
}

func TestTrimField(t *testing.T) {
	assert.Equal(t, "Filename", TrimField("\ufeff Filename \t"))
	assert.Equal(t, "a b", TrimField(" a b\ufeff"))
	assert.Equal(t, "", TrimField("\ufeff"))
}
