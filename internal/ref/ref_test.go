package ref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("component reference", func(t *testing.T) {
		r, err := Parse("ModA:12")
		require.NoError(t, err)
		assert.Equal(t, "moda", r.ModID)
		assert.Equal(t, "12", r.CompKey)
		assert.False(t, r.IsMod())
	})

	t.Run("bare mod id is a mod-level reference", func(t *testing.T) {
		r, err := Parse("ModA")
		require.NoError(t, err)
		assert.Equal(t, "moda", r.ModID)
		assert.Equal(t, Wildcard, r.CompKey)
		assert.True(t, r.IsMod())
	})

	t.Run("explicit wildcard", func(t *testing.T) {
		r, err := Parse("modA:*")
		require.NoError(t, err)
		assert.True(t, r.IsMod())
	})

	t.Run("malformed inputs", func(t *testing.T) {
		for _, s := range []string{"", "a:b:c", ":1", "mod:"} {
			_, err := Parse(s)
			assert.ErrorIs(t, err, ErrMalformed, "input %q", s)
		}
	})

	t.Run("round-trips through String", func(t *testing.T) {
		for _, s := range []string{"moda:1", "moda:*", "bp-bgt-worldmap:0.1.2"} {
			r, err := Parse(s)
			require.NoError(t, err)
			back, err := Parse(r.String())
			require.NoError(t, err)
			assert.Equal(t, r, back)
		}
	})
}

func TestReferenceEquality(t *testing.T) {
	t.Parallel()

	// Equal after normalization regardless of input casing.
	assert.Equal(t, New("MODA", "1"), New("moda", "1"))
	assert.NotEqual(t, New("moda", "1"), New("moda", "2"))
}

func TestMatches(t *testing.T) {
	t.Parallel()

	comp := New("ModA", "3")
	assert.True(t, comp.Matches("moda", "3"))
	assert.True(t, comp.Matches("MODA", "3"))
	assert.False(t, comp.Matches("moda", "4"))
	assert.False(t, comp.Matches("modb", "3"))

	mod := ForMod("ModA")
	assert.True(t, mod.Matches("moda", "3"))
	assert.True(t, mod.Matches("moda", "anything"))
	assert.False(t, mod.Matches("modb", "3"))
}

func TestPair(t *testing.T) {
	t.Parallel()

	p := Pair{Mod: "ModA", Comp: "1"}
	assert.Equal(t, "moda:1", p.Key())
	assert.Equal(t, "ModA", p.Mod, "original casing is preserved")

	t.Run("ordering folds the mod id only", func(t *testing.T) {
		a := Pair{Mod: "ModA", Comp: "2"}
		b := Pair{Mod: "modB", Comp: "1"}
		assert.True(t, a.Less(b))
		assert.False(t, b.Less(a))

		c := Pair{Mod: "moda", Comp: "1"}
		assert.True(t, c.Less(a))
	})
}
