package z3

import (
	"fmt"
	"unsafe"

	stoke "github.com/muqsit-azeem/equivalence-checker-stoke"
)

/*
#include <z3.h>
#include <stdlib.h>
*/
import "C"

// Arity limits carried over from the original binding. Exceeding either is a
// lowering error, not a silent truncation.
const (
	maxFunctionArity  = 3
	maxQuantifierVars = 3
)

// converter lowers stoke expressions into Z3 terms for a single query.
//
// Sub-terms shared between constraints are lowered once; memoization is
// keyed by node identity. Lowering a signed division appends a non-zero
// divisor guard to the derived constraint list, which the query loop feeds
// back through typechecking and lowering.
type converter struct {
	ctx *Context

	boolMemo  map[stoke.BoolExpr]C.Z3_ast
	bvMemo    map[stoke.BVExpr]C.Z3_ast
	arrayMemo map[stoke.ArrayExpr]C.Z3_ast
	funcs     map[string]C.Z3_func_decl

	derived []stoke.BoolExpr
}

// newConverter returns a converter for one query against ctx.
func newConverter(ctx *Context) *converter {
	return &converter{
		ctx:       ctx,
		boolMemo:  make(map[stoke.BoolExpr]C.Z3_ast),
		bvMemo:    make(map[stoke.BVExpr]C.Z3_ast),
		arrayMemo: make(map[stoke.ArrayExpr]C.Z3_ast),
		funcs:     make(map[string]C.Z3_func_decl),
	}
}

// takeDerived returns the side constraints emitted since the last call.
func (c *converter) takeDerived() []stoke.BoolExpr {
	derived := c.derived
	c.derived = nil
	return derived
}

// boolAST returns the Z3 term for a boolean expression.
func (c *converter) boolAST(expr stoke.BoolExpr) (C.Z3_ast, error) {
	if ast, ok := c.boolMemo[expr]; ok {
		return ast, nil
	}

	var ast C.Z3_ast
	var err error
	switch expr := expr.(type) {
	case *stoke.BoolConstantExpr:
		ast, err = c.toBoolConstantAST(expr)
	case *stoke.BoolVarExpr:
		ast, err = c.toBoolVarAST(expr)
	case *stoke.BoolNotExpr:
		ast, err = c.toBoolNotAST(expr)
	case *stoke.BoolBinaryExpr:
		ast, err = c.toBoolBinaryAST(expr)
	case *stoke.CompareExpr:
		ast, err = c.toCompareAST(expr)
	case *stoke.ArrayEqExpr:
		ast, err = c.toArrayEqAST(expr)
	case *stoke.ForAllExpr:
		ast, err = c.toForAllAST(expr)
	default:
		panic(fmt.Sprintf("z3.converter.boolAST: invalid expression type: %T", expr))
	}
	if err != nil {
		return nil, err
	}
	c.boolMemo[expr] = ast
	return ast, nil
}

// bvAST returns the Z3 term for a bit-vector expression.
func (c *converter) bvAST(expr stoke.BVExpr) (C.Z3_ast, error) {
	if ast, ok := c.bvMemo[expr]; ok {
		return ast, nil
	}

	var ast C.Z3_ast
	var err error
	switch expr := expr.(type) {
	case *stoke.BVConstantExpr:
		ast, err = c.toBVConstantAST(expr)
	case *stoke.BVVarExpr:
		ast, err = c.toBVVarAST(expr)
	case *stoke.BVBinaryExpr:
		ast, err = c.toBVBinaryAST(expr)
	case *stoke.BVNotExpr:
		ast, err = c.toBVNotAST(expr)
	case *stoke.BVNegExpr:
		ast, err = c.toBVNegAST(expr)
	case *stoke.BVIteExpr:
		ast, err = c.toBVIteAST(expr)
	case *stoke.BVConcatExpr:
		ast, err = c.toBVConcatAST(expr)
	case *stoke.BVExtractExpr:
		ast, err = c.toBVExtractAST(expr)
	case *stoke.BVSignExtendExpr:
		ast, err = c.toBVSignExtendAST(expr)
	case *stoke.BVFunctionExpr:
		ast, err = c.toBVFunctionAST(expr)
	case *stoke.BVSelectExpr:
		ast, err = c.toBVSelectAST(expr)
	default:
		panic(fmt.Sprintf("z3.converter.bvAST: invalid expression type: %T", expr))
	}
	if err != nil {
		return nil, err
	}
	c.bvMemo[expr] = ast
	return ast, nil
}

// arrayAST returns the Z3 term for an array expression.
func (c *converter) arrayAST(expr stoke.ArrayExpr) (C.Z3_ast, error) {
	if ast, ok := c.arrayMemo[expr]; ok {
		return ast, nil
	}

	var ast C.Z3_ast
	var err error
	switch expr := expr.(type) {
	case *stoke.ArrayVarExpr:
		ast, err = c.toArrayVarAST(expr)
	case *stoke.ArrayStoreExpr:
		ast, err = c.toArrayStoreAST(expr)
	default:
		panic(fmt.Sprintf("z3.converter.arrayAST: invalid expression type: %T", expr))
	}
	if err != nil {
		return nil, err
	}
	c.arrayMemo[expr] = ast
	return ast, nil
}

func (c *converter) toBoolConstantAST(expr *stoke.BoolConstantExpr) (C.Z3_ast, error) {
	if expr.Value {
		return C.Z3_mk_true(c.ctx.raw), c.ctx.err("Z3_mk_true")
	}
	return C.Z3_mk_false(c.ctx.raw), c.ctx.err("Z3_mk_false")
}

func (c *converter) toBoolVarAST(expr *stoke.BoolVarExpr) (C.Z3_ast, error) {
	sort := C.Z3_mk_bool_sort(c.ctx.raw)
	if err := c.ctx.err("Z3_mk_bool_sort"); err != nil {
		return nil, err
	}
	return C.Z3_mk_const(c.ctx.raw, c.ctx.makeSymbol(expr.Name), sort), c.ctx.err("Z3_mk_const")
}

func (c *converter) toBoolNotAST(expr *stoke.BoolNotExpr) (C.Z3_ast, error) {
	src, err := c.boolAST(expr.Expr)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_not(c.ctx.raw, src), c.ctx.err("Z3_mk_not")
}

func (c *converter) toBoolBinaryAST(expr *stoke.BoolBinaryExpr) (C.Z3_ast, error) {
	lhs, err := c.boolAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := c.boolAST(expr.RHS)
	if err != nil {
		return nil, err
	}

	switch expr.Op {
	case stoke.BoolAnd:
		args := [2]C.Z3_ast{lhs, rhs}
		return C.Z3_mk_and(c.ctx.raw, 2, &args[0]), c.ctx.err("Z3_mk_and")
	case stoke.BoolOr:
		args := [2]C.Z3_ast{lhs, rhs}
		return C.Z3_mk_or(c.ctx.raw, 2, &args[0]), c.ctx.err("Z3_mk_or")
	case stoke.BoolXor:
		return C.Z3_mk_xor(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_xor")
	case stoke.BoolIff:
		return C.Z3_mk_iff(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_iff")
	case stoke.BoolImplies:
		return C.Z3_mk_implies(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_implies")
	default:
		panic(fmt.Sprintf("z3.converter.toBoolBinaryAST: unexpected operation: %s", expr.Op))
	}
}

func (c *converter) toCompareAST(expr *stoke.CompareExpr) (C.Z3_ast, error) {
	lhs, err := c.bvAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := c.bvAST(expr.RHS)
	if err != nil {
		return nil, err
	}

	switch expr.Op {
	case stoke.EQ:
		return C.Z3_mk_eq(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_eq")
	case stoke.NE:
		eq := C.Z3_mk_eq(c.ctx.raw, lhs, rhs)
		if err := c.ctx.err("Z3_mk_eq"); err != nil {
			return nil, err
		}
		return C.Z3_mk_not(c.ctx.raw, eq), c.ctx.err("Z3_mk_not")
	case stoke.ULT:
		return C.Z3_mk_bvult(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvult")
	case stoke.ULE:
		return C.Z3_mk_bvule(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvule")
	case stoke.UGT:
		return C.Z3_mk_bvugt(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvugt")
	case stoke.UGE:
		return C.Z3_mk_bvuge(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvuge")
	case stoke.SLT:
		return C.Z3_mk_bvslt(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvslt")
	case stoke.SLE:
		return C.Z3_mk_bvsle(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvsle")
	case stoke.SGT:
		return C.Z3_mk_bvsgt(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvsgt")
	case stoke.SGE:
		return C.Z3_mk_bvsge(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvsge")
	default:
		panic(fmt.Sprintf("z3.converter.toCompareAST: unexpected operation: %s", expr.Op))
	}
}

func (c *converter) toArrayEqAST(expr *stoke.ArrayEqExpr) (C.Z3_ast, error) {
	lhs, err := c.arrayAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := c.arrayAST(expr.RHS)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_eq(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_eq")
}

func (c *converter) toForAllAST(expr *stoke.ForAllExpr) (C.Z3_ast, error) {
	n := len(expr.Vars)
	if n == 0 || n > maxQuantifierVars {
		return nil, fmt.Errorf("z3.converter: quantification over %d variables is not supported", n)
	}

	var bound [maxQuantifierVars]C.Z3_app
	for i, v := range expr.Vars {
		ast, err := c.bvAST(v)
		if err != nil {
			return nil, err
		}
		bound[i] = C.Z3_to_app(c.ctx.raw, ast)
		if err := c.ctx.err("Z3_to_app"); err != nil {
			return nil, err
		}
	}

	body, err := c.boolAST(expr.Body)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_forall_const(c.ctx.raw, 0, C.uint(n), &bound[0], 0, nil, body), c.ctx.err("Z3_mk_forall_const")
}

func (c *converter) toBVConstantAST(expr *stoke.BVConstantExpr) (C.Z3_ast, error) {
	return c.ctx.makeUint64(expr.Width, expr.Value)
}

func (c *converter) toBVVarAST(expr *stoke.BVVarExpr) (C.Z3_ast, error) {
	sort, err := c.ctx.makeBVSort(expr.Width)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_const(c.ctx.raw, c.ctx.makeSymbol(expr.Name), sort), c.ctx.err("Z3_mk_const")
}

func (c *converter) toBVBinaryAST(expr *stoke.BVBinaryExpr) (C.Z3_ast, error) {
	// Signed division is only sound under a non-zero divisor; assert it
	// alongside the original formula.
	if expr.Op == stoke.SDIV {
		c.derived = append(c.derived, nonZeroGuard(expr.RHS))
	}

	lhs, err := c.bvAST(expr.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := c.bvAST(expr.RHS)
	if err != nil {
		return nil, err
	}

	switch expr.Op {
	case stoke.ADD:
		return C.Z3_mk_bvadd(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvadd")
	case stoke.SUB:
		return C.Z3_mk_bvsub(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvsub")
	case stoke.MUL:
		return C.Z3_mk_bvmul(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvmul")
	case stoke.UDIV:
		return C.Z3_mk_bvudiv(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvudiv")
	case stoke.SDIV:
		return C.Z3_mk_bvsdiv(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvsdiv")
	case stoke.UREM:
		return C.Z3_mk_bvurem(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvurem")
	case stoke.SREM:
		return C.Z3_mk_bvsrem(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvsrem")
	case stoke.AND:
		return C.Z3_mk_bvand(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvand")
	case stoke.OR:
		return C.Z3_mk_bvor(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvor")
	case stoke.XOR:
		return C.Z3_mk_bvxor(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvxor")
	case stoke.SHL:
		return C.Z3_mk_bvshl(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvshl")
	case stoke.LSHR:
		return C.Z3_mk_bvlshr(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvlshr")
	case stoke.ASHR:
		return C.Z3_mk_bvashr(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_bvashr")
	case stoke.ROTL:
		return C.Z3_mk_ext_rotate_left(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_ext_rotate_left")
	case stoke.ROTR:
		return C.Z3_mk_ext_rotate_right(c.ctx.raw, lhs, rhs), c.ctx.err("Z3_mk_ext_rotate_right")
	default:
		panic(fmt.Sprintf("z3.converter.toBVBinaryAST: unexpected operation: %s", expr.Op))
	}
}

// nonZeroGuard returns a constraint asserting expr != 0.
func nonZeroGuard(expr stoke.BVExpr) stoke.BoolExpr {
	return stoke.NewCompareExpr(stoke.NE, expr, zeroBV(stoke.Width(expr)))
}

// zeroBV returns a zero constant of any width, concatenating 64-bit literals
// for widths above the constant limit.
func zeroBV(width uint) stoke.BVExpr {
	var expr stoke.BVExpr
	for width > stoke.Width64 {
		expr = concatZero(expr, stoke.NewBVConstantExpr64(0))
		width -= stoke.Width64
	}
	return concatZero(expr, stoke.NewBVConstantExpr(0, width))
}

func concatZero(msb, lsb stoke.BVExpr) stoke.BVExpr {
	if msb == nil {
		return lsb
	}
	return stoke.NewBVConcatExpr(msb, lsb)
}

func (c *converter) toBVNotAST(expr *stoke.BVNotExpr) (C.Z3_ast, error) {
	src, err := c.bvAST(expr.Expr)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvnot(c.ctx.raw, src), c.ctx.err("Z3_mk_bvnot")
}

func (c *converter) toBVNegAST(expr *stoke.BVNegExpr) (C.Z3_ast, error) {
	src, err := c.bvAST(expr.Expr)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_bvneg(c.ctx.raw, src), c.ctx.err("Z3_mk_bvneg")
}

func (c *converter) toBVIteAST(expr *stoke.BVIteExpr) (C.Z3_ast, error) {
	cond, err := c.boolAST(expr.Cond)
	if err != nil {
		return nil, err
	}
	then, err := c.bvAST(expr.Then)
	if err != nil {
		return nil, err
	}
	els, err := c.bvAST(expr.Else)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(c.ctx.raw, cond, then, els), c.ctx.err("Z3_mk_ite")
}

func (c *converter) toBVConcatAST(expr *stoke.BVConcatExpr) (C.Z3_ast, error) {
	msb, err := c.bvAST(expr.MSB)
	if err != nil {
		return nil, err
	}
	lsb, err := c.bvAST(expr.LSB)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_concat(c.ctx.raw, msb, lsb), c.ctx.err("Z3_mk_concat")
}

func (c *converter) toBVExtractAST(expr *stoke.BVExtractExpr) (C.Z3_ast, error) {
	src, err := c.bvAST(expr.Expr)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_extract(c.ctx.raw, C.uint(expr.High), C.uint(expr.Low), src), c.ctx.err("Z3_mk_extract")
}

func (c *converter) toBVSignExtendAST(expr *stoke.BVSignExtendExpr) (C.Z3_ast, error) {
	src, err := c.bvAST(expr.Expr)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_sign_ext(c.ctx.raw, C.uint(expr.Width-stoke.Width(expr.Expr)), src), c.ctx.err("Z3_mk_sign_ext")
}

func (c *converter) toBVFunctionAST(expr *stoke.BVFunctionExpr) (C.Z3_ast, error) {
	n := len(expr.Args)
	if n == 0 {
		return nil, fmt.Errorf("z3.converter: function %s has no arguments", expr.Func.Name)
	} else if n > maxFunctionArity {
		return nil, fmt.Errorf("z3.converter: function %s has too many arguments: %d", expr.Func.Name, n)
	}

	decl, err := c.funcDecl(expr.Func)
	if err != nil {
		return nil, err
	}

	var args [maxFunctionArity]C.Z3_ast
	for i, arg := range expr.Args {
		if args[i], err = c.bvAST(arg); err != nil {
			return nil, err
		}
	}
	return C.Z3_mk_app(c.ctx.raw, decl, C.uint(n), &args[0]), c.ctx.err("Z3_mk_app")
}

// funcDecl returns the Z3 declaration for an uninterpreted function,
// declaring it on first use.
func (c *converter) funcDecl(fn *stoke.Function) (C.Z3_func_decl, error) {
	if decl, ok := c.funcs[fn.Name]; ok {
		return decl, nil
	}

	var domain [maxFunctionArity]C.Z3_sort
	for i, width := range fn.ArgWidths {
		sort, err := c.ctx.makeBVSort(width)
		if err != nil {
			return nil, err
		}
		domain[i] = sort
	}
	rangeSort, err := c.ctx.makeBVSort(fn.ReturnWidth)
	if err != nil {
		return nil, err
	}

	decl := C.Z3_mk_func_decl(c.ctx.raw, c.ctx.makeSymbol(fn.Name), C.uint(len(fn.ArgWidths)), &domain[0], rangeSort)
	if err := c.ctx.err("Z3_mk_func_decl"); err != nil {
		return nil, err
	}
	c.funcs[fn.Name] = decl
	return decl, nil
}

func (c *converter) toBVSelectAST(expr *stoke.BVSelectExpr) (C.Z3_ast, error) {
	array, err := c.arrayAST(expr.Array)
	if err != nil {
		return nil, err
	}
	key, err := c.bvAST(expr.Key)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_select(c.ctx.raw, array, key), c.ctx.err("Z3_mk_select")
}

func (c *converter) toArrayVarAST(expr *stoke.ArrayVarExpr) (C.Z3_ast, error) {
	sort, err := c.ctx.makeArraySort(expr.KeyWidth, expr.ValueWidth)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_const(c.ctx.raw, c.ctx.makeSymbol(expr.Name), sort), c.ctx.err("Z3_mk_const")
}

func (c *converter) toArrayStoreAST(expr *stoke.ArrayStoreExpr) (C.Z3_ast, error) {
	array, err := c.arrayAST(expr.Array)
	if err != nil {
		return nil, err
	}
	key, err := c.bvAST(expr.Key)
	if err != nil {
		return nil, err
	}
	value, err := c.bvAST(expr.Value)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_store(c.ctx.raw, array, key, value), c.ctx.err("Z3_mk_store")
}

// makeSymbol interns name in the context's symbol table.
func (ctx *Context) makeSymbol(name string) C.Z3_symbol {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	return C.Z3_mk_string_symbol(ctx.raw, cname)
}

func (ctx *Context) makeBVSort(width uint) (C.Z3_sort, error) {
	return C.Z3_mk_bv_sort(ctx.raw, C.uint(width)), ctx.err("Z3_mk_bv_sort")
}

func (ctx *Context) makeArraySort(keyWidth, valueWidth uint) (C.Z3_sort, error) {
	keySort, err := ctx.makeBVSort(keyWidth)
	if err != nil {
		return nil, err
	}
	valueSort, err := ctx.makeBVSort(valueWidth)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_array_sort(ctx.raw, keySort, valueSort), ctx.err("Z3_mk_array_sort")
}

func (ctx *Context) makeUint64(width uint, value uint64) (C.Z3_ast, error) {
	sort, err := ctx.makeBVSort(width)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_unsigned_int64(ctx.raw, C.uint64_t(value), sort), ctx.err("Z3_mk_unsigned_int64")
}
