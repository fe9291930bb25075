package stoke

import "fmt"

// Typechecker validates sort and width consistency of constraints before
// they are lowered. It records the first error encountered; a failed check
// aborts the whole query.
type Typechecker struct {
	err error

	// bound holds the names bound by enclosing quantifiers during a check.
	bound map[string]struct{}
}

// Err returns the first error encountered by Check.
func (tc *Typechecker) Err() error { return tc.err }

// Check validates one constraint. On failure the returned error names the
// offending constraint and is retained in Err.
func (tc *Typechecker) Check(constraint BoolExpr) error {
	if err := tc.checkBool(constraint); err != nil {
		err = fmt.Errorf("typechecking failed for constraint %s: %w", constraint, err)
		if tc.err == nil {
			tc.err = err
		}
		return err
	}
	return nil
}

func (tc *Typechecker) checkBool(expr BoolExpr) error {
	switch expr := expr.(type) {
	case *BoolConstantExpr, *BoolVarExpr:
		return nil
	case *BoolNotExpr:
		return tc.checkBool(expr.Expr)
	case *BoolBinaryExpr:
		if err := tc.checkBool(expr.LHS); err != nil {
			return err
		}
		return tc.checkBool(expr.RHS)
	case *CompareExpr:
		lhs, err := tc.checkBV(expr.LHS)
		if err != nil {
			return err
		}
		rhs, err := tc.checkBV(expr.RHS)
		if err != nil {
			return err
		}
		if lhs != rhs {
			return fmt.Errorf("%s: operand widths differ: %d != %d", expr.Op, lhs, rhs)
		}
		return nil
	case *ArrayEqExpr:
		lk, lv, err := tc.checkArray(expr.LHS)
		if err != nil {
			return err
		}
		rk, rv, err := tc.checkArray(expr.RHS)
		if err != nil {
			return err
		}
		if lk != rk || lv != rv {
			return fmt.Errorf("array eq: sorts differ: %d/%d != %d/%d", lk, lv, rk, rv)
		}
		return nil
	case *ForAllExpr:
		if len(expr.Vars) == 0 {
			return fmt.Errorf("forall: no bound variables")
		}
		if tc.bound == nil {
			tc.bound = make(map[string]struct{})
		}
		added := make([]string, 0, len(expr.Vars))
		defer func() {
			for _, name := range added {
				delete(tc.bound, name)
			}
		}()
		for _, v := range expr.Vars {
			if _, ok := tc.bound[v.Name]; ok {
				return fmt.Errorf("forall: bound variable %s shadows another binding", v.Name)
			}
			tc.bound[v.Name] = struct{}{}
			added = append(added, v.Name)
		}
		return tc.checkBool(expr.Body)
	default:
		panic("unreachable")
	}
}

func (tc *Typechecker) checkBV(expr BVExpr) (uint, error) {
	switch expr := expr.(type) {
	case *BVConstantExpr:
		return expr.Width, nil
	case *BVVarExpr:
		return expr.Width, nil
	case *BVBinaryExpr:
		lhs, err := tc.checkBV(expr.LHS)
		if err != nil {
			return 0, err
		}
		rhs, err := tc.checkBV(expr.RHS)
		if err != nil {
			return 0, err
		}
		if lhs != rhs {
			return 0, fmt.Errorf("%s: operand widths differ: %d != %d", expr.Op, lhs, rhs)
		}
		return lhs, nil
	case *BVNotExpr:
		return tc.checkBV(expr.Expr)
	case *BVNegExpr:
		return tc.checkBV(expr.Expr)
	case *BVIteExpr:
		if err := tc.checkBool(expr.Cond); err != nil {
			return 0, err
		}
		then, err := tc.checkBV(expr.Then)
		if err != nil {
			return 0, err
		}
		els, err := tc.checkBV(expr.Else)
		if err != nil {
			return 0, err
		}
		if then != els {
			return 0, fmt.Errorf("ite: arm widths differ: %d != %d", then, els)
		}
		return then, nil
	case *BVConcatExpr:
		msb, err := tc.checkBV(expr.MSB)
		if err != nil {
			return 0, err
		}
		lsb, err := tc.checkBV(expr.LSB)
		if err != nil {
			return 0, err
		}
		return msb + lsb, nil
	case *BVExtractExpr:
		w, err := tc.checkBV(expr.Expr)
		if err != nil {
			return 0, err
		}
		if expr.High < expr.Low {
			return 0, fmt.Errorf("extract: high bit %d below low bit %d", expr.High, expr.Low)
		}
		if expr.High >= w {
			return 0, fmt.Errorf("extract: high bit %d exceeds operand width %d", expr.High, w)
		}
		return expr.High - expr.Low + 1, nil
	case *BVSignExtendExpr:
		w, err := tc.checkBV(expr.Expr)
		if err != nil {
			return 0, err
		}
		if expr.Width < w {
			return 0, fmt.Errorf("sext: target width %d below operand width %d", expr.Width, w)
		}
		return expr.Width, nil
	case *BVFunctionExpr:
		if len(expr.Args) != len(expr.Func.ArgWidths) {
			return 0, fmt.Errorf("function %s: %d arguments for %d parameters", expr.Func.Name, len(expr.Args), len(expr.Func.ArgWidths))
		}
		for i, arg := range expr.Args {
			w, err := tc.checkBV(arg)
			if err != nil {
				return 0, err
			}
			if w != expr.Func.ArgWidths[i] {
				return 0, fmt.Errorf("function %s: argument %d width %d does not match parameter width %d", expr.Func.Name, i, w, expr.Func.ArgWidths[i])
			}
		}
		return expr.Func.ReturnWidth, nil
	case *BVSelectExpr:
		keyWidth, valueWidth, err := tc.checkArray(expr.Array)
		if err != nil {
			return 0, err
		}
		w, err := tc.checkBV(expr.Key)
		if err != nil {
			return 0, err
		}
		if w != keyWidth {
			return 0, fmt.Errorf("select: key width %d does not match array key width %d", w, keyWidth)
		}
		return valueWidth, nil
	default:
		panic("unreachable")
	}
}

func (tc *Typechecker) checkArray(expr ArrayExpr) (keyWidth, valueWidth uint, err error) {
	switch expr := expr.(type) {
	case *ArrayVarExpr:
		return expr.KeyWidth, expr.ValueWidth, nil
	case *ArrayStoreExpr:
		keyWidth, valueWidth, err = tc.checkArray(expr.Array)
		if err != nil {
			return 0, 0, err
		}
		kw, err := tc.checkBV(expr.Key)
		if err != nil {
			return 0, 0, err
		}
		if kw != keyWidth {
			return 0, 0, fmt.Errorf("store: key width %d does not match array key width %d", kw, keyWidth)
		}
		vw, err := tc.checkBV(expr.Value)
		if err != nil {
			return 0, 0, err
		}
		if vw != valueWidth {
			return 0, 0, fmt.Errorf("store: value width %d does not match array value width %d", vw, valueWidth)
		}
		return keyWidth, valueWidth, nil
	default:
		panic("unreachable")
	}
}
