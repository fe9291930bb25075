package z3

import (
	"fmt"

	stoke "github.com/muqsit-azeem/equivalence-checker-stoke"
)

/*
#include <z3.h>
*/
import "C"

// ModelBitVector reconstructs the satisfying assignment for a bit-vector
// variable, bits wide, from the retained model. The width is read in 64-bit
// windows and packed little-endian; it must be a multiple of 8.
//
// The name and width must match what was asserted. No cross-check against
// the query is possible, so a mismatch yields an undefined result.
func (s *Solver) ModelBitVector(name string, bits uint) (stoke.BitVector, error) {
	if s.model == nil {
		return stoke.BitVector{}, fmt.Errorf("model bit-vector %q: %w", name, stoke.ErrNoModel)
	}
	if bits == 0 || bits%8 != 0 {
		return stoke.BitVector{}, fmt.Errorf("model bit-vector %q: width %d is not byte-aligned", name, bits)
	}

	sort, err := s.ctx.makeBVSort(bits)
	if err != nil {
		return stoke.BitVector{}, err
	}
	v := C.Z3_mk_const(s.ctx.raw, s.ctx.makeSymbol(name), sort)
	if err := s.ctx.err("Z3_mk_const"); err != nil {
		return stoke.BitVector{}, err
	}

	result := stoke.NewBitVector(bits)
	for i := uint(0); i < (bits+63)/64; i++ {
		low := i * 64
		high := low + 63
		if high > bits-1 {
			high = bits - 1
		}

		window := C.Z3_mk_extract(s.ctx.raw, C.uint(high), C.uint(low), v)
		if err := s.ctx.err("Z3_mk_extract"); err != nil {
			return stoke.BitVector{}, err
		}
		eval, err := s.eval(window)
		if err != nil {
			return stoke.BitVector{}, err
		}
		word, err := s.ctx.numeralUint64(eval)
		if err != nil {
			return stoke.BitVector{}, fmt.Errorf("model bit-vector %q: %w", name, err)
		}

		for j := low / 8; j <= high/8; j++ {
			result.SetByte(int(j), byte(word>>((j-low/8)*8)))
		}
	}
	return result, nil
}

// ModelBool reconstructs the satisfying assignment for a boolean variable
// from the retained model. An assignment that is neither true nor false is
// reported as an error, never coerced to a default.
func (s *Solver) ModelBool(name string) (bool, error) {
	if s.model == nil {
		return false, fmt.Errorf("model boolean %q: %w", name, stoke.ErrNoModel)
	}

	sort := C.Z3_mk_bool_sort(s.ctx.raw)
	if err := s.ctx.err("Z3_mk_bool_sort"); err != nil {
		return false, err
	}
	v := C.Z3_mk_const(s.ctx.raw, s.ctx.makeSymbol(name), sort)
	if err := s.ctx.err("Z3_mk_const"); err != nil {
		return false, err
	}
	eval, err := s.eval(v)
	if err != nil {
		return false, err
	}

	switch C.Z3_get_bool_value(s.ctx.raw, eval) {
	case C.Z3_L_TRUE:
		return true, nil
	case C.Z3_L_FALSE:
		return false, nil
	default:
		return false, fmt.Errorf("invalid value for boolean %q", name)
	}
}

// ModelArray reconstructs the satisfying assignment for an array variable as
// a sparse address to byte mapping with a default byte.
//
// The model expresses an array in one of several shapes: a chain of point
// stores over a base, a constant array, or an opaque function
// interpretation. Unrecognized shapes (including Z3's array-map combinator)
// degrade to the entries collected so far with a zero default and a logged
// diagnostic, since an unparseable memory model may simply mean the array
// contents did not matter; the caller should re-verify such a result.
func (s *Solver) ModelArray(name string, keyBits, valueBits uint) (*stoke.ArrayValue, error) {
	if s.model == nil {
		return nil, fmt.Errorf("model array %q: %w", name, stoke.ErrNoModel)
	}

	sort, err := s.ctx.makeArraySort(keyBits, valueBits)
	if err != nil {
		return nil, err
	}
	v := C.Z3_mk_const(s.ctx.raw, s.ctx.makeSymbol(name), sort)
	if err := s.ctx.err("Z3_mk_const"); err != nil {
		return nil, err
	}
	e, err := s.eval(v)
	if err != nil {
		return nil, err
	}

	result := stoke.NewArrayValue(0)

	// Peel point stores down to the base array.
	kind, err := s.declKind(e)
	if err != nil {
		return nil, err
	}
	for kind == C.Z3_OP_STORE {
		app := C.Z3_to_app(s.ctx.raw, e)
		if err := s.ctx.err("Z3_to_app"); err != nil {
			return nil, err
		}

		addr, err := s.appArgUint64(app, 1)
		if err != nil {
			return nil, fmt.Errorf("model array %q: store index: %w", name, err)
		}
		value, err := s.appArgUint64(app, 2)
		if err != nil {
			return nil, fmt.Errorf("model array %q: store value: %w", name, err)
		}
		if value > 0xff {
			return nil, fmt.Errorf("model array %q: stored value %#x at %#x does not fit in a byte", name, value, addr)
		}
		result.Set(addr, byte(value))

		e = C.Z3_get_app_arg(s.ctx.raw, app, 0)
		if err := s.ctx.err("Z3_get_app_arg"); err != nil {
			return nil, err
		}
		if kind, err = s.declKind(e); err != nil {
			return nil, err
		}
	}

	switch kind {
	case C.Z3_OP_CONST_ARRAY:
		app := C.Z3_to_app(s.ctx.raw, e)
		if err := s.ctx.err("Z3_to_app"); err != nil {
			return nil, err
		}
		def, err := s.appArgUint64(app, 0)
		if err != nil {
			return nil, fmt.Errorf("model array %q: default value: %w", name, err)
		}
		if def > 0xff {
			return nil, fmt.Errorf("model array %q: default value %#x does not fit in a byte", name, def)
		}
		result.SetDefault(byte(def))
		return result, nil

	case C.Z3_OP_AS_ARRAY:
		if err := s.decodeFuncInterp(name, e, result); err != nil {
			return nil, err
		}
		return result, nil

	case C.Z3_OP_ARRAY_MAP:
		s.Logger.Printf("[z3] don't know how to handle array map for %q", name)
		return result, nil

	default:
		// The counterexample could be spurious, but there might also be no
		// memory at all or the memory does not matter.
		s.Logger.Printf("[z3] couldn't parse array model for %q; may have spurious result", name)
		return result, nil
	}
}

// decodeFuncInterp reads the entries of the function interpretation backing
// an as-array model value into result, using the function's else value as
// the default byte.
func (s *Solver) decodeFuncInterp(name string, e C.Z3_ast, result *stoke.ArrayValue) error {
	decl := C.Z3_get_app_decl(s.ctx.raw, C.Z3_to_app(s.ctx.raw, e))
	if err := s.ctx.err("Z3_get_app_decl"); err != nil {
		return err
	}
	fd := C.Z3_get_decl_func_decl_parameter(s.ctx.raw, decl, 0)
	if err := s.ctx.err("Z3_get_decl_func_decl_parameter"); err != nil {
		return err
	}

	interp := C.Z3_model_get_func_interp(s.ctx.raw, s.model, fd)
	if err := s.ctx.err("Z3_model_get_func_interp"); err != nil {
		return err
	}
	if interp == nil {
		s.Logger.Printf("[z3] missing function interpretation for array %q", name)
		return nil
	}
	C.Z3_func_interp_inc_ref(s.ctx.raw, interp)
	defer C.Z3_func_interp_dec_ref(s.ctx.raw, interp)

	n := C.Z3_func_interp_get_num_entries(s.ctx.raw, interp)
	if err := s.ctx.err("Z3_func_interp_get_num_entries"); err != nil {
		return err
	}
	for i := C.uint(0); i < n; i++ {
		entry := C.Z3_func_interp_get_entry(s.ctx.raw, interp, i)
		if err := s.ctx.err("Z3_func_interp_get_entry"); err != nil {
			return err
		}
		C.Z3_func_entry_inc_ref(s.ctx.raw, entry)

		addr, err := s.ctx.numeralUint64(C.Z3_func_entry_get_arg(s.ctx.raw, entry, 0))
		if err == nil {
			var value uint64
			value, err = s.ctx.numeralUint64(C.Z3_func_entry_get_value(s.ctx.raw, entry))
			if err == nil && value > 0xff {
				err = fmt.Errorf("entry value %#x at %#x does not fit in a byte", value, addr)
			}
			if err == nil {
				result.Set(addr, byte(value))
			}
		}
		C.Z3_func_entry_dec_ref(s.ctx.raw, entry)
		if err != nil {
			return fmt.Errorf("model array %q: %w", name, err)
		}
	}

	def, err := s.ctx.numeralUint64(C.Z3_func_interp_get_else(s.ctx.raw, interp))
	if err != nil {
		return fmt.Errorf("model array %q: else value: %w", name, err)
	}
	if def > 0xff {
		return fmt.Errorf("model array %q: else value %#x does not fit in a byte", name, def)
	}
	result.SetDefault(byte(def))
	return nil
}

// eval evaluates ast in the retained model with model completion.
func (s *Solver) eval(ast C.Z3_ast) (C.Z3_ast, error) {
	var out C.Z3_ast
	ok := C.Z3_model_eval(s.ctx.raw, s.model, ast, C.bool(true), &out)
	if err := s.ctx.err("Z3_model_eval"); err != nil {
		return nil, err
	}
	if !bool(ok) || out == nil {
		return nil, fmt.Errorf("model evaluation failed")
	}
	return out, nil
}

// declKind returns the top-level declaration kind of a model term.
// Non-application terms (e.g. a lambda-shaped array value) report an
// uninterpreted kind so the caller reaches its fallback arm.
func (s *Solver) declKind(e C.Z3_ast) (C.Z3_decl_kind, error) {
	isApp := C.Z3_is_app(s.ctx.raw, e)
	if err := s.ctx.err("Z3_is_app"); err != nil {
		return 0, err
	}
	if !bool(isApp) {
		return C.Z3_OP_UNINTERPRETED, nil
	}

	app := C.Z3_to_app(s.ctx.raw, e)
	if err := s.ctx.err("Z3_to_app"); err != nil {
		return 0, err
	}
	decl := C.Z3_get_app_decl(s.ctx.raw, app)
	if err := s.ctx.err("Z3_get_app_decl"); err != nil {
		return 0, err
	}
	kind := C.Z3_get_decl_kind(s.ctx.raw, decl)
	return kind, s.ctx.err("Z3_get_decl_kind")
}

// appArgUint64 returns the i-th argument of app as an unsigned numeral.
func (s *Solver) appArgUint64(app C.Z3_app, i C.uint) (uint64, error) {
	arg := C.Z3_get_app_arg(s.ctx.raw, app, i)
	if err := s.ctx.err("Z3_get_app_arg"); err != nil {
		return 0, err
	}
	return s.ctx.numeralUint64(arg)
}

// numeralUint64 returns the value of a numeral term.
func (ctx *Context) numeralUint64(ast C.Z3_ast) (uint64, error) {
	var value C.uint64_t
	ok := C.Z3_get_numeral_uint64(ctx.raw, ast, &value)
	if err := ctx.err("Z3_get_numeral_uint64"); err != nil {
		return 0, err
	}
	if !bool(ok) {
		return 0, fmt.Errorf("term is not a numeral")
	}
	return uint64(value), nil
}
