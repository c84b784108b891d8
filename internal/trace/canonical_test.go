package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	b, err := MarshalCanonical(map[string]any{
		"zebra": int64(1),
		"alpha": int64(2),
		"mid":   int64(3),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mid":3,"zebra":1}`, string(b))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	b, err := MarshalCanonical("a<b>&c")
	require.NoError(t, err)
	assert.Equal(t, `"a<b>&c"`, string(b))
}

func TestMarshalCanonical_RejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"k": nil})
	require.Error(t, err)
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(3.14)
	require.Error(t, err)

	_, err = MarshalCanonical([]any{float32(1.0)})
	require.Error(t, err)
}

func TestMarshalCanonical_NestedStructures(t *testing.T) {
	b, err := MarshalCanonical(map[string]any{
		"events": []any{
			map[string]any{"op": "take", "seq": int64(2)},
			map[string]any{"op": "put", "seq": int64(1)},
		},
		"name": "q",
	})
	require.NoError(t, err)
	assert.Equal(t,
		`{"events":[{"op":"take","seq":2},{"op":"put","seq":1}],"name":"q"}`,
		string(b))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// "é" composed (U+00E9) and decomposed (e + U+0301) must serialize
	// identically.
	composed, err := MarshalCanonical("café")
	require.NoError(t, err)
	decomposed, err := MarshalCanonical("café")
	require.NoError(t, err)
	assert.Equal(t, string(composed), string(decomposed))
}

func TestMarshalCanonical_LineSeparatorsUnescaped(t *testing.T) {
	b, err := MarshalCanonical("a b c")
	require.NoError(t, err)
	assert.Equal(t, "\"a b c\"", string(b))
}

func TestMarshalCanonical_LiteralBackslashU202xStaysEscaped(t *testing.T) {
	// The six characters \ u 2 0 2 8 in the input are data, not an
	// escape; the backslash itself must stay escaped.
	b, err := MarshalCanonical(`x\u2028y`)
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028y"`, string(b))
}

func TestLessUTF16_SurrogateOrdering(t *testing.T) {
	// U+FF61 (halfwidth ideographic full stop) is a single code unit
	// 0xFF61; U+10000 encodes as surrogates 0xD800 0xDC00. In UTF-16
	// order the surrogate pair sorts first, though its UTF-8 bytes
	// would sort after.
	assert.True(t, lessUTF16("\U00010000", "｡"))
	assert.False(t, lessUTF16("｡", "\U00010000"))
}
