package z3_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	stoke "github.com/muqsit-azeem/equivalence-checker-stoke"
	"github.com/muqsit-azeem/equivalence-checker-stoke/z3"
)

func TestSolver_IsSat(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		t.Run("True", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if satisfiable, err := s.IsSat([]stoke.BoolExpr{stoke.NewBoolConstantExpr(true)}); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			}
		})
		t.Run("False", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if satisfiable, err := s.IsSat([]stoke.BoolExpr{stoke.NewBoolConstantExpr(false)}); err != nil {
				t.Fatal(err)
			} else if satisfiable {
				t.Fatal("expected unsatisfiable")
			}
		})
	})

	t.Run("Conjunction", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		x := stoke.NewBVVarExpr("x", 8)
		// (x == 4 && x < 10) nested under a second conjunction.
		constraint := stoke.NewAndExpr(
			stoke.NewEqExpr(x, stoke.NewBVConstantExpr(4, 8)),
			stoke.NewAndExpr(
				stoke.NewCompareExpr(stoke.ULT, x, stoke.NewBVConstantExpr(10, 8)),
				stoke.NewBoolConstantExpr(true),
			),
		)
		if satisfiable, err := s.IsSat([]stoke.BoolExpr{constraint}); err != nil {
			t.Fatal(err)
		} else if !satisfiable {
			t.Fatal("expected satisfiable")
		}

		if value, err := s.ModelBitVector("x", 8); err != nil {
			t.Fatal(err)
		} else if got := value.Uint64(); got != 4 {
			t.Fatalf("unexpected value: %d", got)
		}
	})

	t.Run("Contradiction", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		x := stoke.NewBVVarExpr("x", 32)
		constraints := []stoke.BoolExpr{
			stoke.NewEqExpr(x, stoke.NewBVConstantExpr(1, 32)),
			stoke.NewEqExpr(x, stoke.NewBVConstantExpr(2, 32)),
		}
		if satisfiable, err := s.IsSat(constraints); err != nil {
			t.Fatal(err)
		} else if satisfiable {
			t.Fatal("expected unsatisfiable")
		}

		// No model is retained after an unsatisfiable result.
		if _, err := s.ModelBitVector("x", 32); !errors.Is(err, stoke.ErrNoModel) {
			t.Fatalf("expected ErrNoModel, got: %v", err)
		}
	})

	t.Run("TypecheckFailure", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		constraint := stoke.NewEqExpr(stoke.NewBVVarExpr("x", 8), stoke.NewBVConstantExpr(0, 16))
		if _, err := s.IsSat([]stoke.BoolExpr{constraint}); err == nil {
			t.Fatal("expected error")
		} else if !strings.Contains(err.Error(), "typechecking failed") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("SignedDivisionGuard", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		x := stoke.NewBVVarExpr("x", 32)
		y := stoke.NewBVVarExpr("y", 32)
		constraint := stoke.NewEqExpr(
			stoke.NewBVBinaryExpr(stoke.SDIV, x, y),
			stoke.NewBVConstantExpr(5, 32),
		)
		if satisfiable, err := s.IsSat([]stoke.BoolExpr{constraint}); err != nil {
			t.Fatal(err)
		} else if !satisfiable {
			t.Fatal("expected satisfiable")
		}

		// The derived guard forbids a zero divisor.
		if value, err := s.ModelBitVector("y", 32); err != nil {
			t.Fatal(err)
		} else if value.Uint64() == 0 {
			t.Fatal("divisor assigned zero despite guard")
		}
	})

	t.Run("ForAll", func(t *testing.T) {
		t.Run("OneVar", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			x := stoke.NewBVVarExpr("x", 8)
			y := stoke.NewBVVarExpr("y", 8)
			// forall x. x & y == x  forces y to all ones.
			constraint := stoke.NewForAllExpr(
				stoke.NewEqExpr(stoke.NewBVBinaryExpr(stoke.AND, x, y), x),
				x,
			)
			if satisfiable, err := s.IsSat([]stoke.BoolExpr{constraint}); err != nil {
				t.Fatal(err)
			} else if !satisfiable {
				t.Fatal("expected satisfiable")
			}
			if value, err := s.ModelBitVector("y", 8); err != nil {
				t.Fatal(err)
			} else if got := value.Uint64(); got != 0xFF {
				t.Fatalf("unexpected value: %#x", got)
			}
		})

		t.Run("TooManyVars", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			vars := []*stoke.BVVarExpr{
				stoke.NewBVVarExpr("a", 8),
				stoke.NewBVVarExpr("b", 8),
				stoke.NewBVVarExpr("c", 8),
				stoke.NewBVVarExpr("d", 8),
			}
			constraint := stoke.NewForAllExpr(stoke.NewEqExpr(vars[0], vars[0]), vars...)
			if _, err := s.IsSat([]stoke.BoolExpr{constraint}); err == nil {
				t.Fatal("expected error")
			} else if !strings.Contains(err.Error(), "not supported") {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	})

	t.Run("Function", func(t *testing.T) {
		t.Run("Congruence", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			fn := stoke.NewFunction("f", 8, 8)
			x := stoke.NewBVVarExpr("x", 8)
			y := stoke.NewBVVarExpr("y", 8)
			// x == y but f(x) != f(y) contradicts congruence.
			constraints := []stoke.BoolExpr{
				stoke.NewEqExpr(x, y),
				stoke.NewCompareExpr(stoke.NE,
					stoke.NewBVFunctionExpr(fn, x),
					stoke.NewBVFunctionExpr(fn, y),
				),
			}
			if satisfiable, err := s.IsSat(constraints); err != nil {
				t.Fatal(err)
			} else if satisfiable {
				t.Fatal("expected unsatisfiable")
			}
		})

		t.Run("TooManyArgs", func(t *testing.T) {
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			fn := stoke.NewFunction("f", 8, 8, 8, 8, 8)
			args := []stoke.BVExpr{
				stoke.NewBVVarExpr("a", 8),
				stoke.NewBVVarExpr("b", 8),
				stoke.NewBVVarExpr("c", 8),
				stoke.NewBVVarExpr("d", 8),
			}
			constraint := stoke.NewEqExpr(
				stoke.NewBVFunctionExpr(fn, args...),
				stoke.NewBVConstantExpr(0, 8),
			)
			if _, err := s.IsSat([]stoke.BoolExpr{constraint}); err == nil {
				t.Fatal("expected error")
			} else if !strings.Contains(err.Error(), "too many arguments") {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	})

	t.Run("Interrupt", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		x := stoke.NewBVVarExpr("x", 64)
		s.Interrupt()
		if _, err := s.IsSat([]stoke.BoolExpr{stoke.NewEqExpr(x, stoke.NewBVConstantExpr64(1))}); !errors.Is(err, stoke.ErrInterrupted) {
			t.Fatalf("expected ErrInterrupted, got: %v", err)
		}

		// The interrupt is consumed; the next call proceeds normally.
		if satisfiable, err := s.IsSat([]stoke.BoolExpr{stoke.NewEqExpr(x, stoke.NewBVConstantExpr64(1))}); err != nil {
			t.Fatal(err)
		} else if !satisfiable {
			t.Fatal("expected satisfiable")
		}
	})

	t.Run("DebugDump", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)
		s.DebugDir = t.TempDir()

		if _, err := s.IsSat([]stoke.BoolExpr{stoke.NewBoolConstantExpr(true)}); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(filepath.Join(s.DebugDir, "query-001.smt2"))
		if err != nil {
			t.Fatal(err)
		}
		if len(data) == 0 {
			t.Fatal("expected non-empty dump")
		}
	})
}

func TestSolver_ModelBitVector(t *testing.T) {
	t.Run("Width128", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		w := stoke.NewBVVarExpr("w", 128)
		literal := stoke.NewBVConcatExpr(
			stoke.NewBVConstantExpr64(0x0123456789ABCDEF),
			stoke.NewBVConstantExpr64(0xFEDCBA9876543210),
		)
		if satisfiable, err := s.IsSat([]stoke.BoolExpr{stoke.NewEqExpr(w, literal)}); err != nil {
			t.Fatal(err)
		} else if !satisfiable {
			t.Fatal("expected satisfiable")
		}

		value, err := s.ModelBitVector("w", 128)
		if err != nil {
			t.Fatal(err)
		}
		var want []byte
		for i, lo := 0, uint64(0xFEDCBA9876543210); i < 8; i++ {
			want = append(want, byte(lo>>(i*8)))
		}
		for i, hi := 0, uint64(0x0123456789ABCDEF); i < 8; i++ {
			want = append(want, byte(hi>>(i*8)))
		}
		var got []byte
		for i := 0; i < 16; i++ {
			got = append(got, value.Byte(i))
		}
		if diff := cmp.Diff(got, want); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("UnalignedWidth", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		x := stoke.NewBVVarExpr("x", 8)
		if _, err := s.IsSat([]stoke.BoolExpr{stoke.NewEqExpr(x, stoke.NewBVConstantExpr(1, 8))}); err != nil {
			t.Fatal(err)
		}
		if _, err := s.ModelBitVector("x", 12); err == nil {
			t.Fatal("expected error for non-byte-aligned width")
		}
	})
}

func TestSolver_ModelBool(t *testing.T) {
	s := z3.NewSolver()
	defer MustCloseSolver(s)

	b := stoke.NewBoolVarExpr("b")
	constraints := []stoke.BoolExpr{
		stoke.NewBoolBinaryExpr(stoke.BoolIff, b, stoke.NewBoolConstantExpr(true)),
	}
	if satisfiable, err := s.IsSat(constraints); err != nil {
		t.Fatal(err)
	} else if !satisfiable {
		t.Fatal("expected satisfiable")
	}

	if value, err := s.ModelBool("b"); err != nil {
		t.Fatal(err)
	} else if !value {
		t.Fatal("expected true")
	}
}

func TestSolver_ModelArray(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		m := stoke.NewArrayVarExpr("m", 64, 8)
		updates := map[uint64]byte{0x10: 0xAA, 0x20: 0xBB, 0x30: 0xCC}
		var constraints []stoke.BoolExpr
		for addr, value := range updates {
			constraints = append(constraints, stoke.NewEqExpr(
				stoke.NewBVSelectExpr(m, stoke.NewBVConstantExpr64(addr)),
				stoke.NewBVConstantExpr(uint64(value), 8),
			))
		}

		if satisfiable, err := s.IsSat(constraints); err != nil {
			t.Fatal(err)
		} else if !satisfiable {
			t.Fatal("expected satisfiable")
		}

		value, err := s.ModelArray("m", 64, 8)
		if err != nil {
			t.Fatal(err)
		}
		for addr, want := range updates {
			if got := value.Byte(addr); got != want {
				t.Fatalf("unexpected byte at %#x: got %#x, want %#x", addr, got, want)
			}
		}
	})

	t.Run("DefaultElsewhere", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		// One explicit byte at 0x10; every other address is pinned to 0x42,
		// so the decoded default must carry it.
		m := stoke.NewArrayVarExpr("m", 64, 8)
		k := stoke.NewBVVarExpr("k", 64)
		constraints := []stoke.BoolExpr{
			stoke.NewEqExpr(
				stoke.NewBVSelectExpr(m, stoke.NewBVConstantExpr64(0x10)),
				stoke.NewBVConstantExpr(0xAA, 8),
			),
			stoke.NewForAllExpr(
				stoke.NewBoolBinaryExpr(stoke.BoolImplies,
					stoke.NewCompareExpr(stoke.NE, k, stoke.NewBVConstantExpr64(0x10)),
					stoke.NewEqExpr(stoke.NewBVSelectExpr(m, k), stoke.NewBVConstantExpr(0x42, 8)),
				),
				k,
			),
		}

		if satisfiable, err := s.IsSat(constraints); err != nil {
			t.Fatal(err)
		} else if !satisfiable {
			t.Fatal("expected satisfiable")
		}

		value, err := s.ModelArray("m", 64, 8)
		if err != nil {
			t.Fatal(err)
		}
		if got := value.Byte(0x10); got != 0xAA {
			t.Fatalf("unexpected byte at 0x10: %#x", got)
		}
		if got := value.Byte(0x9999); got != 0x42 {
			t.Fatalf("unexpected byte at unmapped address: %#x", got)
		}
		if got := value.Default(); got != 0x42 {
			t.Fatalf("unexpected default byte: %#x", got)
		}
	})

	t.Run("StoreChain", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		m := stoke.NewArrayVarExpr("m", 64, 8)
		n := stoke.NewArrayVarExpr("n", 64, 8)
		stored := stoke.NewArrayStoreExpr(
			stoke.NewArrayStoreExpr(n,
				stoke.NewBVConstantExpr64(0x10), stoke.NewBVConstantExpr(0xAA, 8)),
			stoke.NewBVConstantExpr64(0x20), stoke.NewBVConstantExpr(0xBB, 8),
		)
		if satisfiable, err := s.IsSat([]stoke.BoolExpr{stoke.NewArrayEqExpr(m, stored)}); err != nil {
			t.Fatal(err)
		} else if !satisfiable {
			t.Fatal("expected satisfiable")
		}

		value, err := s.ModelArray("m", 64, 8)
		if err != nil {
			t.Fatal(err)
		}
		if got := value.Byte(0x10); got != 0xAA {
			t.Fatalf("unexpected byte at 0x10: %#x", got)
		}
		if got := value.Byte(0x20); got != 0xBB {
			t.Fatalf("unexpected byte at 0x20: %#x", got)
		}
	})

	t.Run("NoModel", func(t *testing.T) {
		s := z3.NewSolver()
		defer MustCloseSolver(s)
		if _, err := s.ModelArray("m", 64, 8); !errors.Is(err, stoke.ErrNoModel) {
			t.Fatalf("expected ErrNoModel, got: %v", err)
		}
	})
}

// MustCloseSolver closes the solver. Panic on error.
func MustCloseSolver(s *z3.Solver) {
	if err := s.Close(); err != nil {
		panic(err)
	}
}
