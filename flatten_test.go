package stoke_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	stoke "github.com/muqsit-azeem/equivalence-checker-stoke"
)

func TestSplitConjunctions(t *testing.T) {
	a := stoke.NewBoolVarExpr("a")
	b := stoke.NewBoolVarExpr("b")
	c := stoke.NewBoolVarExpr("c")
	d := stoke.NewBoolVarExpr("d")

	t.Run("Atomic", func(t *testing.T) {
		split := stoke.SplitConjunctions([]stoke.BoolExpr{a, b})
		if diff := cmp.Diff(split, []stoke.BoolExpr{a, b}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Nested", func(t *testing.T) {
		// ((a && b) && (c && d)) flattens left to right.
		constraint := stoke.NewAndExpr(stoke.NewAndExpr(a, b), stoke.NewAndExpr(c, d))
		split := stoke.SplitConjunctions([]stoke.BoolExpr{constraint})
		if diff := cmp.Diff(split, []stoke.BoolExpr{a, b, c, d}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("OtherConnectivesPassThrough", func(t *testing.T) {
		or := stoke.NewBoolBinaryExpr(stoke.BoolOr, a, b)
		split := stoke.SplitConjunctions([]stoke.BoolExpr{stoke.NewAndExpr(or, c)})
		if diff := cmp.Diff(split, []stoke.BoolExpr{or, c}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		constraint := stoke.NewAndExpr(a, stoke.NewAndExpr(b, c))
		once := stoke.SplitConjunctions([]stoke.BoolExpr{constraint})
		twice := stoke.SplitConjunctions(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatal(diff)
		}
	})
}
