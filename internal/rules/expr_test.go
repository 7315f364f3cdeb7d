package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/modplango/internal/ref"
)

func TestParseComponentSet(t *testing.T) {
	t.Parallel()

	t.Run("specific components", func(t *testing.T) {
		cs, err := parseComponentSet("ModA(1, 2,3)")
		require.NoError(t, err)
		assert.Equal(t, "ModA", cs.modID)
		assert.Equal(t, []string{"1", "2", "3"}, cs.compKeys)
	})

	t.Run("whole mod", func(t *testing.T) {
		cs, err := parseComponentSet("ModA(-)")
		require.NoError(t, err)
		assert.Nil(t, cs.compKeys)
		assert.Equal(t, []string{"ModA:*"}, cs.refStrings())
	})

	t.Run("malformed", func(t *testing.T) {
		for _, s := range []string{"ModA", "ModA()", "(1,2)"} {
			_, err := parseComponentSet(s)
			assert.Error(t, err, "input %q", s)
		}
	})
}

func TestParseSideExpression(t *testing.T) {
	t.Parallel()

	t.Run("and side", func(t *testing.T) {
		se, err := parseSideExpression("ModA(1,2)&ModB(3)")
		require.NoError(t, err)
		assert.Equal(t, ModeAll, se.op)
		assert.Len(t, se.sets, 2)
	})

	t.Run("or side", func(t *testing.T) {
		se, err := parseSideExpression("ModC(-)|ModD(5,6)")
		require.NoError(t, err)
		assert.Equal(t, ModeAny, se.op)
		assert.Len(t, se.sets, 2)
	})

	t.Run("single set defaults to any", func(t *testing.T) {
		se, err := parseSideExpression("ModA(1)")
		require.NoError(t, err)
		assert.Equal(t, ModeAny, se.op)
	})

	t.Run("mixed operators rejected", func(t *testing.T) {
		_, err := parseSideExpression("ModA(1)&ModB(2)|ModC(3)")
		require.Error(t, err)
	})
}

func TestExpandExpression(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("dependency with and-side lowers into groups", func(t *testing.T) {
		loaded := Load(ctx, []Record{{Rule: "ModA(1)&ModB(2):ModC(-)"}}, TypeDependency)
		require.Len(t, loaded, 1)
		require.Len(t, loaded[0].SourceGroups, 2)
		assert.Equal(t, []ref.Reference{ref.New("moda", "1")}, loaded[0].SourceGroups[0].Components)
		assert.Equal(t, []ref.Reference{ref.ForMod("modc")}, loaded[0].Targets)
		assert.Empty(t, loaded[0].TargetGroups)
	})

	t.Run("or side stays a flat list", func(t *testing.T) {
		loaded := Load(ctx, []Record{{Rule: "ModD(1):ModC(1)|ModC(2)"}}, TypeDependency)
		require.Len(t, loaded, 1)
		assert.Empty(t, loaded[0].TargetGroups)
		assert.Len(t, loaded[0].Targets, 2)
	})

	t.Run("incompatibility expands pairwise", func(t *testing.T) {
		// Three sides: one record per pair.
		loaded := Load(ctx, []Record{{Rule: "ModA(1):ModB(2):ModC(3)"}}, TypeIncompatibility)
		require.Len(t, loaded, 3)
		assert.Equal(t, []ref.Reference{ref.New("moda", "1")}, loaded[0].Sources)
		assert.Equal(t, []ref.Reference{ref.New("modb", "2")}, loaded[0].Targets)
		assert.Equal(t, []ref.Reference{ref.New("modc", "3")}, loaded[2].Targets)
	})

	t.Run("dependency with three sides is rejected", func(t *testing.T) {
		loaded := Load(ctx, []Record{{Rule: "ModA(1):ModB(2):ModC(3)"}}, TypeDependency)
		assert.Empty(t, loaded)
	})

	t.Run("record fields survive expansion", func(t *testing.T) {
		loaded := Load(ctx, []Record{{
			Rule:        "ModA(1):ModB(2)",
			Severity:    "warning",
			Description: "keep me",
		}}, TypeOrder)
		require.Len(t, loaded, 1)
		assert.Equal(t, SeverityWarning, loaded[0].Severity)
		assert.Equal(t, "keep me", loaded[0].Description)
	})
}
