package normalize

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiteral_Scalars(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{`'abc'`, "abc"},
		{`"abc"`, "abc"},
		{`'it\'s'`, "it's"},
		{`"a\nb"`, "a\nb"},
		{`'\x41é'`, "Aé"},
		{`r'\d+'`, `\d+`},
		{`u'x'`, "x"},
		{`'a' 'b'`, "ab"},
		{`'''multi
line'''`, "multi\nline"},
		{`'x = 2 × 3'`, "x = 2 × 3"},
		{`42`, int64(42)},
		{`-7`, int64(-7)},
		{`017`, int64(17)},
		{`1_000`, int64(1000)},
		{`0x1f`, int64(31)},
		{`3.5`, 3.5},
		{`.5`, 0.5},
		{`1e3`, 1000.0},
		{`-2.5e-1`, -0.25},
		{`True`, true},
		{`false`, false},
		{`None`, nil},
		{`null`, nil},
		{`(5)`, int64(5)},
	}
	for _, tt := range tests {
		got, err := ParseLiteral(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestParseLiteral_Containers(t *testing.T) {
	got, err := ParseLiteral(`[1, 'a', (2, 3), (4,), {'k': [None]},]`)
	require.NoError(t, err)
	assert.Equal(t, []any{
		int64(1),
		"a",
		[]any{int64(2), int64(3)},
		[]any{int64(4)},
		Item{"k": []any{nil}},
	}, got)

	got, err = ParseLiteral(`{1: 'one', True: 'yes', 'n': {}}`)
	require.NoError(t, err)
	assert.Equal(t, Item{"1": "one", "True": "yes", "n": Item{}}, got)

	got, err = ParseLiteral("[\\\n 1]")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1)}, got)
}

func TestParseLiteral_Errors(t *testing.T) {
	for _, in := range []string{
		``,
		`[`,
		`[1 2]`,
		`{'a' 1}`,
		`{[1]: 2}`,
		`'open`,
		"'line\nbreak'",
		`foo`,
		`[x]`,
		`1 2`,
		`-`,
		`0xZZ`,
		`'\x4'`,
		`@`,
	} {
		_, err := ParseLiteral(in)
		var se *SyntaxError
		assert.ErrorAs(t, err, &se, "input %q", in)
	}
}

func TestParseLiteral_BigIntegersStayExact(t *testing.T) {
	for _, lit := range []string{
		"15511210043330985984000000",
		"-15511210043330985984000000",
		"9223372036854775808",
	} {
		v, err := ParseLiteral(lit)
		require.NoError(t, err, lit)
		assert.IsType(t, &big.Int{}, v, lit)
		assert.Equal(t, lit, Render(v))
	}

	v, err := ParseLiteral("0x10000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551616", Render(v))

	v, err = ParseLiteral("9223372036854775807")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), v)
}

func TestRender(t *testing.T) {
	assert.Equal(t, "", Render(nil))
	assert.Equal(t, "True", Render(true))
	assert.Equal(t, "False", Render(false))
	assert.Equal(t, "12", Render(int64(12)))
	assert.Equal(t, "0.1", Render(0.1))
	assert.Equal(t, "2", Render(2.0))
	assert.Equal(t, "1e+300", Render(1e300))
	assert.Equal(t, "-2.5e-07", Render(-2.5e-7))
	assert.Equal(t, "123456789012345", Render(123456789012345.0))
	assert.Equal(t, "1e+16", Render(1e16))
	assert.Equal(t, `[1, "a", None]`, Render([]any{int64(1), "a", nil}))
	assert.Equal(t, `{"a": 1, "b": "x"}`, Render(Item{"b": "x", "a": int64(1)}))
}
