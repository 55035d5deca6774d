package journal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockstep/internal/sim"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"null", nil, `null`},
		{"bool", true, `true`},
		{"int", 42, `42`},
		{"uint64", uint64(1) << 63, `9223372036854775808`},
		{"float", 0.5, `0.5`},
		{"float integral", 3.0, `3`},
		{"float small", 0.000001, `0.000001`},
		{"float large", 1e21, `1e+21`},
		{"no html escape", "<a&b>", `"<a&b>"`},
		{"sorted keys", map[string]any{"b": 1, "a": 2}, `{"a":2,"b":1}`},
		{"nested", map[string]any{"z": []any{1, "x"}, "a": map[string]any{}}, `{"a":{},"z":[1,"x"]}`},
		{"nfc", "e\u0301", "\"\u00e9\""},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"escaped backslash kept", `\u2028`, `"\\u2028"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	_, err := MarshalCanonical(math.NaN())
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"v": math.Inf(1)})
	assert.ErrorContains(t, err, `value for key "v"`)

	_, err = MarshalCanonical(struct{}{})
	assert.ErrorContains(t, err, "unsupported type")
}

func TestCompareUTF16(t *testing.T) {
	// U+FF61 sorts after U+1F600 in UTF-8 byte order but before it in
	// UTF-16, where the emoji becomes a surrogate pair starting 0xD83D.
	assert.Negative(t, compareUTF16("\U0001F600", "\uFF61"))
	assert.Zero(t, compareUTF16("a", "a"))
	assert.Negative(t, compareUTF16("a", "ab"))
}

func TestEncodeSnapshot_Stable(t *testing.T) {
	set := sim.NewSnapshotSet()
	set.Reset(7)
	set.Objects[2] = sim.ObjectState{ID: 2, Position: sim.Vec3{X: 1.5}, Rotation: sim.IdentityQuat}
	set.Objects[1] = sim.ObjectState{ID: 1, Rotation: sim.IdentityQuat}

	got, err := EncodeSnapshot(&set)
	require.NoError(t, err)
	assert.Equal(t,
		`{"objects":[`+
			`{"id":1,"position":{"x":0,"y":0,"z":0},"rotation":{"w":1,"x":0,"y":0,"z":0}},`+
			`{"id":2,"position":{"x":1.5,"y":0,"z":0},"rotation":{"w":1,"x":0,"y":0,"z":0}}`+
			`],"tick":7}`,
		string(got))
}
