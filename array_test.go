package stoke_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	stoke "github.com/muqsit-azeem/equivalence-checker-stoke"
)

func TestArrayValue(t *testing.T) {
	t.Run("DefaultByte", func(t *testing.T) {
		a := stoke.NewArrayValue(0x7F)
		if got := a.Byte(0x1000); got != 0x7F {
			t.Fatalf("unexpected byte: %#x", got)
		}
		if a.Contains(0x1000) {
			t.Fatal("expected address to be unmapped")
		}
	})

	t.Run("SetAndGet", func(t *testing.T) {
		a := stoke.NewArrayValue(0)
		a.Set(0x20, 0xBB)
		a.Set(0x10, 0xAA)
		if got := a.Byte(0x10); got != 0xAA {
			t.Fatalf("unexpected byte: %#x", got)
		}
		if got := a.Byte(0x20); got != 0xBB {
			t.Fatalf("unexpected byte: %#x", got)
		}
		if got := a.Byte(0x30); got != 0 {
			t.Fatalf("unexpected byte: %#x", got)
		}
		if a.Len() != 2 {
			t.Fatalf("unexpected length: %d", a.Len())
		}
	})

	t.Run("IteratorOrdered", func(t *testing.T) {
		a := stoke.NewArrayValue(0)
		a.Set(0x30, 3)
		a.Set(0x10, 1)
		a.Set(0x20, 2)

		var addrs []uint64
		var values []byte
		for itr := a.Iterator(); !itr.Done(); {
			addr, value := itr.Next()
			addrs = append(addrs, addr)
			values = append(values, value)
		}
		if diff := cmp.Diff(addrs, []uint64{0x10, 0x20, 0x30}); diff != "" {
			t.Fatal(diff)
		}
		if diff := cmp.Diff(values, []byte{1, 2, 3}); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		a := stoke.NewArrayValue(0)
		a.Set(0x10, 1)
		a.Set(0x10, 2)
		if got := a.Byte(0x10); got != 2 {
			t.Fatalf("unexpected byte: %#x", got)
		}
		if a.Len() != 1 {
			t.Fatalf("unexpected length: %d", a.Len())
		}
	})
}
