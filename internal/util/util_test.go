package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twinlayout/sceneedit/pkg/core"
)

func TestTrimQuotes(t *testing.T) {
	assert.Equal(t, "abc", TrimQuotes(`"abc"`))
	assert.Equal(t, "abc", TrimQuotes("abc"))
	assert.Equal(t, `a"b`, FixEscapeQuotes(`a""b`))
}

func TestParseVec3(t *testing.T) {
	tests := []struct {
		in   string
		want core.Vec3
		ok   bool
	}{
		{"[1,2,3]", core.Vec3{X: 1, Y: 2, Z: 3}, true},
		{" 1.5, 0 , -2 ", core.Vec3{X: 1.5, Z: -2}, true},
		{`"[0,0,4]"`, core.Vec3{Z: 4}, true},
		{"[1,2]", core.Vec3{}, false},
		{"[a,b,c]", core.Vec3{}, false},
		{"", core.Vec3{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVec3(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrBadArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVec2(t *testing.T) {
	got, err := ParseVec2("[3.25,-1]")
	require.NoError(t, err)
	assert.Equal(t, core.Vec2{X: 3.25, Z: -1}, got)

	_, err = ParseVec2("[1,2,3]")
	assert.ErrorIs(t, err, ErrBadArgument)
}

func TestParseIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, ParseIDs([]string{`["a","b"]`, "c", ""}))
	assert.Empty(t, ParseIDs(nil))
	assert.Empty(t, ParseIDs([]string{"[]"}))
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "1", "ON", `"true"`} {
		v, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"false", "0", "off"} {
		v, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.False(t, v, s)
	}
	_, err := ParseBool("maybe")
	assert.ErrorIs(t, err, ErrBadArgument)
}
