package engine

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/modplango/internal/ref"
	"github.com/vk/modplango/internal/rules"
)

func sortedCopy(order []ref.Pair) []ref.Pair {
	out := append([]ref.Pair(nil), order...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func selectionPairs(sel map[string][]string) []ref.Pair {
	var out []ref.Pair
	for mod, comps := range sel {
		for _, comp := range comps {
			out = append(out, ref.Pair{Mod: mod, Comp: comp})
		}
	}
	return sortedCopy(out)
}

func TestGenerateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("dependency precedes its dependent", func(t *testing.T) {
		eng := newEngine(t, rules.Set{
			Dependencies: loadRules(t, []rules.Record{
				{Source: "modA:1", Target: "modB:2", Mode: "all"},
			}, rules.TypeDependency),
		})

		order := eng.GenerateOrder(ctx, map[string][]string{"modA": {"1"}, "modB": {"2"}}, nil)
		require.Len(t, order, 2)
		assert.Equal(t, ref.Pair{Mod: "modB", Comp: "2"}, order[0])
		assert.Equal(t, ref.Pair{Mod: "modA", Comp: "1"}, order[1])
	})

	t.Run("implicit_order false adds no constraint", func(t *testing.T) {
		eng := newEngine(t, rules.Set{
			Dependencies: loadRules(t, []rules.Record{
				{Source: "modA:1", Target: "modB:2", Mode: "all", ImplicitOrder: boolPtr(false)},
			}, rules.TypeDependency),
		})

		order := eng.GenerateOrder(ctx, map[string][]string{"modA": {"1"}, "modB": {"2"}}, nil)
		// Lexicographic order wins when nothing constrains the pair.
		assert.Equal(t, []ref.Pair{{Mod: "modA", Comp: "1"}, {Mod: "modB", Comp: "2"}}, order)
	})

	t.Run("order rule directions", func(t *testing.T) {
		before := newEngine(t, rules.Set{
			Order: loadRules(t, []rules.Record{
				{Source: "modZ:1", Target: "modA:1", Direction: "before"},
			}, rules.TypeOrder),
		})
		order := before.GenerateOrder(ctx, map[string][]string{"modZ": {"1"}, "modA": {"1"}}, nil)
		assert.Equal(t, []ref.Pair{{Mod: "modZ", Comp: "1"}, {Mod: "modA", Comp: "1"}}, order)

		after := newEngine(t, rules.Set{
			Order: loadRules(t, []rules.Record{
				{Source: "modA:1", Target: "modZ:1", Direction: "after"},
			}, rules.TypeOrder),
		})
		order = after.GenerateOrder(ctx, map[string][]string{"modZ": {"1"}, "modA": {"1"}}, nil)
		assert.Equal(t, []ref.Pair{{Mod: "modZ", Comp: "1"}, {Mod: "modA", Comp: "1"}}, order)
	})

	t.Run("always a permutation of the selection", func(t *testing.T) {
		eng := newEngine(t, rules.Set{
			Dependencies: loadRules(t, []rules.Record{
				{Source: "modA:1", Target: "modB", Mode: "all"},
				{Source: "modB:1", Target: "modC:9", Mode: "all"},
			}, rules.TypeDependency),
			Order: loadRules(t, []rules.Record{
				{Source: "modC:9", Target: "modA:1"},
			}, rules.TypeOrder),
		})
		sel := map[string][]string{
			"modA": {"1", "2"},
			"modB": {"1", "2", "3"},
			"modC": {"9"},
			"modX": {"unconstrained"},
		}

		order := eng.GenerateOrder(ctx, sel, nil)
		assert.Equal(t, selectionPairs(sel), sortedCopy(order))
	})

	t.Run("deterministic across runs", func(t *testing.T) {
		eng := newEngine(t, rules.Set{
			Dependencies: loadRules(t, []rules.Record{
				{Source: "modA:1", Target: "modB", Mode: "all"},
			}, rules.TypeDependency),
		})
		sel := map[string][]string{"modA": {"1"}, "modB": {"2", "1"}, "modC": {"5"}}

		first := eng.GenerateOrder(ctx, sel, nil)
		for i := 0; i < 10; i++ {
			assert.Empty(t, cmp.Diff(first, eng.GenerateOrder(ctx, sel, nil)))
		}
	})

	t.Run("base order seeds the prefix", func(t *testing.T) {
		eng := newEngine(t, rules.Set{})
		sel := map[string][]string{"modA": {"1"}, "modB": {"2"}, "modC": {"3"}}
		base := []ref.Pair{
			{Mod: "modC", Comp: "3"},
			{Mod: "modB", Comp: "2"},
			{Mod: "modQ", Comp: "7"}, // not selected, prefix stops here
			{Mod: "modA", Comp: "1"},
		}

		order := eng.GenerateOrder(ctx, sel, base)
		assert.Equal(t, []ref.Pair{
			{Mod: "modC", Comp: "3"},
			{Mod: "modB", Comp: "2"},
			{Mod: "modA", Comp: "1"},
		}, order)
	})

	t.Run("cycle terminates with every item exactly once", func(t *testing.T) {
		eng := newEngine(t, rules.Set{
			Order: loadRules(t, []rules.Record{
				{Source: "modA:1", Target: "modB:1", Direction: "before"},
				{Source: "modB:1", Target: "modA:1", Direction: "before"},
			}, rules.TypeOrder),
		})
		sel := map[string][]string{"modA": {"1"}, "modB": {"1"}, "modC": {"1"}}

		order := eng.GenerateOrder(ctx, sel, nil)
		assert.Equal(t, selectionPairs(sel), sortedCopy(order))
		// The unconstrained node still sorts out; the cycle members come
		// after it, lexicographically.
		assert.Equal(t, []ref.Pair{
			{Mod: "modC", Comp: "1"},
			{Mod: "modA", Comp: "1"},
			{Mod: "modB", Comp: "1"},
		}, order)
	})

	t.Run("generated order passes validation", func(t *testing.T) {
		eng := newEngine(t, rules.Set{
			Dependencies: loadRules(t, []rules.Record{
				{Source: "modA:1", Target: "modB", Mode: "all"},
				{Source: "modB:2", Target: []any{"modC:1", "modC:2"}, Mode: "any"},
			}, rules.TypeDependency),
			Order: loadRules(t, []rules.Record{
				{Source: "modD:1", Target: "modA:1", Direction: "before"},
			}, rules.TypeOrder),
		})
		sel := map[string][]string{
			"modA": {"1"},
			"modB": {"1", "2"},
			"modC": {"1", "2"},
			"modD": {"1"},
		}

		order := eng.GenerateOrder(ctx, sel, nil)
		assert.Empty(t, eng.ValidateOrder(ctx, order))
	})
}

func TestValidateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("order rule violations", func(t *testing.T) {
		eng := newEngine(t, rules.Set{
			Order: loadRules(t, []rules.Record{
				{Source: "modA:1", Target: "modB:2", Direction: "before"},
			}, rules.TypeOrder),
		})

		violations := eng.ValidateOrder(ctx, []ref.Pair{{Mod: "modB", Comp: "2"}, {Mod: "modA", Comp: "1"}})
		require.Len(t, violations, 1)
		assert.Equal(t, []ref.Pair{{Mod: "modA", Comp: "1"}, {Mod: "modB", Comp: "2"}}, violations[0].Affected)

		violations = eng.ValidateOrder(ctx, []ref.Pair{{Mod: "modA", Comp: "1"}, {Mod: "modB", Comp: "2"}})
		assert.Empty(t, violations)
	})

	t.Run("dependency after its dependent", func(t *testing.T) {
		eng := newEngine(t, rules.Set{
			Dependencies: loadRules(t, []rules.Record{
				{Source: "modA:1", Target: "modB:2", Mode: "all"},
			}, rules.TypeDependency),
		})

		violations := eng.ValidateOrder(ctx, []ref.Pair{{Mod: "modA", Comp: "1"}, {Mod: "modB", Comp: "2"}})
		require.Len(t, violations, 1)

		violations = eng.ValidateOrder(ctx, []ref.Pair{{Mod: "modB", Comp: "2"}, {Mod: "modA", Comp: "1"}})
		assert.Empty(t, violations)
	})

	t.Run("implicit_order false is not checked", func(t *testing.T) {
		eng := newEngine(t, rules.Set{
			Dependencies: loadRules(t, []rules.Record{
				{Source: "modA:1", Target: "modB:2", Mode: "all", ImplicitOrder: boolPtr(false)},
			}, rules.TypeDependency),
		})

		violations := eng.ValidateOrder(ctx, []ref.Pair{{Mod: "modA", Comp: "1"}, {Mod: "modB", Comp: "2"}})
		assert.Empty(t, violations)
	})

	t.Run("mod level reference resolves to the first matching entry", func(t *testing.T) {
		eng := newEngine(t, rules.Set{
			Order: loadRules(t, []rules.Record{
				{Source: "modA", Target: "modB:1", Direction: "before"},
			}, rules.TypeOrder),
		})

		// First modA entry at position 1, after modB:1 at 0.
		violations := eng.ValidateOrder(ctx, []ref.Pair{
			{Mod: "modB", Comp: "1"},
			{Mod: "modA", Comp: "7"},
			{Mod: "modA", Comp: "8"},
		})
		require.Len(t, violations, 1)
		assert.Equal(t, []ref.Pair{{Mod: "modA", Comp: "7"}, {Mod: "modB", Comp: "1"}}, violations[0].Affected)
	})

	t.Run("original casing is preserved in reported pairs", func(t *testing.T) {
		eng := newEngine(t, rules.Set{
			Order: loadRules(t, []rules.Record{
				{Source: "moda:1", Target: "modb:2", Direction: "before"},
			}, rules.TypeOrder),
		})

		violations := eng.ValidateOrder(ctx, []ref.Pair{{Mod: "ModB", Comp: "2"}, {Mod: "MODA", Comp: "1"}})
		require.Len(t, violations, 1)
		assert.Equal(t, []ref.Pair{{Mod: "MODA", Comp: "1"}, {Mod: "ModB", Comp: "2"}}, violations[0].Affected)
	})

	t.Run("entries absent from the order are skipped", func(t *testing.T) {
		eng := newEngine(t, rules.Set{
			Order: loadRules(t, []rules.Record{
				{Source: "modA:1", Target: "modB:2", Direction: "before"},
			}, rules.TypeOrder),
		})

		violations := eng.ValidateOrder(ctx, []ref.Pair{{Mod: "modB", Comp: "2"}})
		assert.Empty(t, violations)
	})
}
