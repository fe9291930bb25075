package stoke

import (
	"fmt"
	"strings"
)

// BVExpr represents a fixed-width bit-vector expression.
type BVExpr interface {
	fmt.Stringer
	bvExpr()
}

func (*BVConstantExpr) bvExpr()   {}
func (*BVVarExpr) bvExpr()        {}
func (*BVBinaryExpr) bvExpr()     {}
func (*BVNotExpr) bvExpr()        {}
func (*BVNegExpr) bvExpr()        {}
func (*BVIteExpr) bvExpr()        {}
func (*BVConcatExpr) bvExpr()     {}
func (*BVExtractExpr) bvExpr()    {}
func (*BVSignExtendExpr) bvExpr() {}
func (*BVFunctionExpr) bvExpr()   {}
func (*BVSelectExpr) bvExpr()     {}

// BoolExpr represents a boolean expression. Constraints are boolean expressions.
type BoolExpr interface {
	fmt.Stringer
	boolExpr()
}

func (*BoolConstantExpr) boolExpr() {}
func (*BoolVarExpr) boolExpr()      {}
func (*BoolNotExpr) boolExpr()      {}
func (*BoolBinaryExpr) boolExpr()   {}
func (*CompareExpr) boolExpr()      {}
func (*ArrayEqExpr) boolExpr()      {}
func (*ForAllExpr) boolExpr()       {}

// ArrayExpr represents an array of bit-vectors keyed by bit-vectors.
type ArrayExpr interface {
	fmt.Stringer
	arrayExpr()
}

func (*ArrayVarExpr) arrayExpr()   {}
func (*ArrayStoreExpr) arrayExpr() {}

// Width returns the bit width of the expression.
func Width(expr BVExpr) uint {
	switch expr := expr.(type) {
	case *BVConstantExpr:
		return expr.Width
	case *BVVarExpr:
		return expr.Width
	case *BVBinaryExpr:
		return Width(expr.LHS)
	case *BVNotExpr:
		return Width(expr.Expr)
	case *BVNegExpr:
		return Width(expr.Expr)
	case *BVIteExpr:
		return Width(expr.Then)
	case *BVConcatExpr:
		return Width(expr.MSB) + Width(expr.LSB)
	case *BVExtractExpr:
		return expr.High - expr.Low + 1
	case *BVSignExtendExpr:
		return expr.Width
	case *BVFunctionExpr:
		return expr.Func.ReturnWidth
	case *BVSelectExpr:
		return ArrayValueWidth(expr.Array)
	default:
		panic("unreachable")
	}
}

// ArrayKeyWidth returns the bit width of the array's keys.
func ArrayKeyWidth(expr ArrayExpr) uint {
	switch expr := expr.(type) {
	case *ArrayVarExpr:
		return expr.KeyWidth
	case *ArrayStoreExpr:
		return ArrayKeyWidth(expr.Array)
	default:
		panic("unreachable")
	}
}

// ArrayValueWidth returns the bit width of the array's values.
func ArrayValueWidth(expr ArrayExpr) uint {
	switch expr := expr.(type) {
	case *ArrayVarExpr:
		return expr.ValueWidth
	case *ArrayStoreExpr:
		return ArrayValueWidth(expr.Array)
	default:
		panic("unreachable")
	}
}

// BVBinaryOp represents a binary bit-vector operation.
type BVBinaryOp int

// BVBinaryExpr operations.
const (
	ADD = BVBinaryOp(iota)
	SUB
	MUL
	UDIV
	SDIV
	UREM
	SREM
	AND
	OR
	XOR
	SHL
	LSHR
	ASHR
	ROTL
	ROTR
)

var bvBinaryOps = [...]string{
	ADD:  "add",
	SUB:  "sub",
	MUL:  "mul",
	UDIV: "udiv",
	SDIV: "sdiv",
	UREM: "urem",
	SREM: "srem",
	AND:  "and",
	OR:   "or",
	XOR:  "xor",
	SHL:  "shl",
	LSHR: "lshr",
	ASHR: "ashr",
	ROTL: "rotl",
	ROTR: "rotr",
}

// String returns the string representation of the operation.
func (op BVBinaryOp) String() string {
	if op >= 0 && op < BVBinaryOp(len(bvBinaryOps)) && bvBinaryOps[op] != "" {
		return bvBinaryOps[op]
	}
	return fmt.Sprintf("BVBinaryOp<%d>", op)
}

// CompareOp represents a bit-vector comparison operation.
type CompareOp int

// CompareExpr operations.
const (
	EQ = CompareOp(iota)
	NE
	ULT
	ULE
	UGT
	UGE
	SLT
	SLE
	SGT
	SGE
)

var compareOps = [...]string{
	EQ:  "eq",
	NE:  "ne",
	ULT: "ult",
	ULE: "ule",
	UGT: "ugt",
	UGE: "uge",
	SLT: "slt",
	SLE: "sle",
	SGT: "sgt",
	SGE: "sge",
}

// String returns the string representation of the operation.
func (op CompareOp) String() string {
	if op >= 0 && op < CompareOp(len(compareOps)) && compareOps[op] != "" {
		return compareOps[op]
	}
	return fmt.Sprintf("CompareOp<%d>", op)
}

// BoolBinaryOp represents a binary boolean connective.
type BoolBinaryOp int

// BoolBinaryExpr operations.
const (
	BoolAnd = BoolBinaryOp(iota)
	BoolOr
	BoolXor
	BoolIff
	BoolImplies
)

var boolBinaryOps = [...]string{
	BoolAnd:     "and",
	BoolOr:      "or",
	BoolXor:     "xor",
	BoolIff:     "iff",
	BoolImplies: "implies",
}

// String returns the string representation of the operation.
func (op BoolBinaryOp) String() string {
	if op >= 0 && op < BoolBinaryOp(len(boolBinaryOps)) && boolBinaryOps[op] != "" {
		return boolBinaryOps[op]
	}
	return fmt.Sprintf("BoolBinaryOp<%d>", op)
}

// BVConstantExpr represents a bit-vector literal of up to 64 bits. Wider
// literals are built by concatenating constants.
type BVConstantExpr struct {
	Value uint64
	Width uint
}

// NewBVConstantExpr returns a new instance of BVConstantExpr.
func NewBVConstantExpr(value uint64, width uint) *BVConstantExpr {
	assert(width > 0 && width <= Width64, "bv constant: invalid width: %d", width)
	return &BVConstantExpr{Value: value, Width: width}
}

// NewBVConstantExpr64 returns a new 64-bit constant expression.
func NewBVConstantExpr64(value uint64) *BVConstantExpr {
	return NewBVConstantExpr(value, Width64)
}

// String returns a string representation of the expression.
func (e *BVConstantExpr) String() string {
	return fmt.Sprintf("(bv %d %d)", e.Value, e.Width)
}

// BVVarExpr represents a named bit-vector variable.
type BVVarExpr struct {
	Name  string
	Width uint
}

// NewBVVarExpr returns a new instance of BVVarExpr.
func NewBVVarExpr(name string, width uint) *BVVarExpr {
	assert(width > 0, "bv var %q: invalid width: %d", name, width)
	return &BVVarExpr{Name: name, Width: width}
}

// String returns a string representation of the expression.
func (e *BVVarExpr) String() string {
	return fmt.Sprintf("(var %s %d)", e.Name, e.Width)
}

// BVBinaryExpr represents an operation on two bit-vector expressions.
type BVBinaryExpr struct {
	Op  BVBinaryOp
	LHS BVExpr
	RHS BVExpr
}

// NewBVBinaryExpr returns a new instance of BVBinaryExpr.
func NewBVBinaryExpr(op BVBinaryOp, lhs, rhs BVExpr) *BVBinaryExpr {
	return &BVBinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}

// String returns a string representation of the expression.
func (e *BVBinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Op, e.LHS, e.RHS)
}

// BVNotExpr represents a bitwise complement of an expression.
type BVNotExpr struct {
	Expr BVExpr
}

// NewBVNotExpr returns a new instance of BVNotExpr.
func NewBVNotExpr(expr BVExpr) *BVNotExpr {
	return &BVNotExpr{Expr: expr}
}

// String returns a string representation of the expression.
func (e *BVNotExpr) String() string {
	return fmt.Sprintf("(not %s)", e.Expr)
}

// BVNegExpr represents the two's complement negation of an expression.
type BVNegExpr struct {
	Expr BVExpr
}

// NewBVNegExpr returns a new instance of BVNegExpr.
func NewBVNegExpr(expr BVExpr) *BVNegExpr {
	return &BVNegExpr{Expr: expr}
}

// String returns a string representation of the expression.
func (e *BVNegExpr) String() string {
	return fmt.Sprintf("(neg %s)", e.Expr)
}

// BVIteExpr represents an if-then-else over two bit-vector expressions.
type BVIteExpr struct {
	Cond BoolExpr
	Then BVExpr
	Else BVExpr
}

// NewBVIteExpr returns a new instance of BVIteExpr.
func NewBVIteExpr(cond BoolExpr, then, els BVExpr) *BVIteExpr {
	return &BVIteExpr{Cond: cond, Then: then, Else: els}
}

// String returns a string representation of the expression.
func (e *BVIteExpr) String() string {
	return fmt.Sprintf("(ite %s %s %s)", e.Cond, e.Then, e.Else)
}

// BVConcatExpr represents a concatenation of two expressions.
type BVConcatExpr struct {
	MSB BVExpr
	LSB BVExpr
}

// NewBVConcatExpr returns a new instance of BVConcatExpr.
func NewBVConcatExpr(msb, lsb BVExpr) *BVConcatExpr {
	return &BVConcatExpr{MSB: msb, LSB: lsb}
}

// String returns a string representation of the expression.
func (e *BVConcatExpr) String() string {
	return fmt.Sprintf("(concat %s %s)", e.MSB, e.LSB)
}

// BVExtractExpr represents the extraction of bits [Low,High] from an expression.
type BVExtractExpr struct {
	Expr BVExpr
	High uint
	Low  uint
}

// NewBVExtractExpr returns a new instance of BVExtractExpr.
func NewBVExtractExpr(expr BVExpr, high, low uint) *BVExtractExpr {
	return &BVExtractExpr{Expr: expr, High: high, Low: low}
}

// String returns a string representation of the expression.
func (e *BVExtractExpr) String() string {
	return fmt.Sprintf("(extract %d %d %s)", e.High, e.Low, e.Expr)
}

// BVSignExtendExpr represents sign extension of an expression to Width bits.
type BVSignExtendExpr struct {
	Expr  BVExpr
	Width uint
}

// NewBVSignExtendExpr returns a new instance of BVSignExtendExpr.
func NewBVSignExtendExpr(expr BVExpr, width uint) *BVSignExtendExpr {
	return &BVSignExtendExpr{Expr: expr, Width: width}
}

// String returns a string representation of the expression.
func (e *BVSignExtendExpr) String() string {
	return fmt.Sprintf("(sext %d %s)", e.Width, e.Expr)
}

// Function describes the signature of an uninterpreted function.
type Function struct {
	Name        string
	ArgWidths   []uint
	ReturnWidth uint
}

// NewFunction returns a new instance of Function.
func NewFunction(name string, returnWidth uint, argWidths ...uint) *Function {
	return &Function{Name: name, ArgWidths: argWidths, ReturnWidth: returnWidth}
}

// BVFunctionExpr represents an application of an uninterpreted function.
type BVFunctionExpr struct {
	Func *Function
	Args []BVExpr
}

// NewBVFunctionExpr returns a new instance of BVFunctionExpr.
func NewBVFunctionExpr(fn *Function, args ...BVExpr) *BVFunctionExpr {
	return &BVFunctionExpr{Func: fn, Args: args}
}

// String returns a string representation of the expression.
func (e *BVFunctionExpr) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%s", e.Func.Name)
	for _, arg := range e.Args {
		fmt.Fprintf(&sb, " %s", arg)
	}
	sb.WriteString(")")
	return sb.String()
}

// BVSelectExpr represents a read of an array at a key.
type BVSelectExpr struct {
	Array ArrayExpr
	Key   BVExpr
}

// NewBVSelectExpr returns a new instance of BVSelectExpr.
func NewBVSelectExpr(array ArrayExpr, key BVExpr) *BVSelectExpr {
	return &BVSelectExpr{Array: array, Key: key}
}

// String returns a string representation of the expression.
func (e *BVSelectExpr) String() string {
	return fmt.Sprintf("(select %s %s)", e.Array, e.Key)
}

// BoolConstantExpr represents a boolean literal.
type BoolConstantExpr struct {
	Value bool
}

// NewBoolConstantExpr returns a new instance of BoolConstantExpr.
func NewBoolConstantExpr(value bool) *BoolConstantExpr {
	return &BoolConstantExpr{Value: value}
}

// String returns a string representation of the expression.
func (e *BoolConstantExpr) String() string {
	if e.Value {
		return "true"
	}
	return "false"
}

// BoolVarExpr represents a named boolean variable.
type BoolVarExpr struct {
	Name string
}

// NewBoolVarExpr returns a new instance of BoolVarExpr.
func NewBoolVarExpr(name string) *BoolVarExpr {
	return &BoolVarExpr{Name: name}
}

// String returns a string representation of the expression.
func (e *BoolVarExpr) String() string {
	return fmt.Sprintf("(var %s bool)", e.Name)
}

// BoolNotExpr represents a negation of a boolean expression.
type BoolNotExpr struct {
	Expr BoolExpr
}

// NewBoolNotExpr returns a new instance of BoolNotExpr.
func NewBoolNotExpr(expr BoolExpr) *BoolNotExpr {
	return &BoolNotExpr{Expr: expr}
}

// String returns a string representation of the expression.
func (e *BoolNotExpr) String() string {
	return fmt.Sprintf("(not %s)", e.Expr)
}

// BoolBinaryExpr represents a binary connective over two boolean expressions.
type BoolBinaryExpr struct {
	Op  BoolBinaryOp
	LHS BoolExpr
	RHS BoolExpr
}

// NewBoolBinaryExpr returns a new instance of BoolBinaryExpr.
func NewBoolBinaryExpr(op BoolBinaryOp, lhs, rhs BoolExpr) *BoolBinaryExpr {
	return &BoolBinaryExpr{Op: op, LHS: lhs, RHS: rhs}
}

// NewAndExpr returns the conjunction of two boolean expressions.
func NewAndExpr(lhs, rhs BoolExpr) *BoolBinaryExpr {
	return NewBoolBinaryExpr(BoolAnd, lhs, rhs)
}

// String returns a string representation of the expression.
func (e *BoolBinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Op, e.LHS, e.RHS)
}

// CompareExpr represents a comparison of two bit-vector expressions.
type CompareExpr struct {
	Op  CompareOp
	LHS BVExpr
	RHS BVExpr
}

// NewCompareExpr returns a new instance of CompareExpr.
func NewCompareExpr(op CompareOp, lhs, rhs BVExpr) *CompareExpr {
	return &CompareExpr{Op: op, LHS: lhs, RHS: rhs}
}

// NewEqExpr returns an equality comparison of two bit-vector expressions.
func NewEqExpr(lhs, rhs BVExpr) *CompareExpr {
	return NewCompareExpr(EQ, lhs, rhs)
}

// String returns a string representation of the expression.
func (e *CompareExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Op, e.LHS, e.RHS)
}

// ArrayEqExpr represents an equality comparison of two array expressions.
type ArrayEqExpr struct {
	LHS ArrayExpr
	RHS ArrayExpr
}

// NewArrayEqExpr returns a new instance of ArrayEqExpr.
func NewArrayEqExpr(lhs, rhs ArrayExpr) *ArrayEqExpr {
	return &ArrayEqExpr{LHS: lhs, RHS: rhs}
}

// String returns a string representation of the expression.
func (e *ArrayEqExpr) String() string {
	return fmt.Sprintf("(eq %s %s)", e.LHS, e.RHS)
}

// ForAllExpr represents universal quantification over bit-vector variables.
type ForAllExpr struct {
	Vars []*BVVarExpr
	Body BoolExpr
}

// NewForAllExpr returns a new instance of ForAllExpr.
func NewForAllExpr(body BoolExpr, vars ...*BVVarExpr) *ForAllExpr {
	return &ForAllExpr{Vars: vars, Body: body}
}

// String returns a string representation of the expression.
func (e *ForAllExpr) String() string {
	var sb strings.Builder
	sb.WriteString("(forall (")
	for i, v := range e.Vars {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(v.String())
	}
	fmt.Fprintf(&sb, ") %s)", e.Body)
	return sb.String()
}

// ArrayVarExpr represents a named array variable.
type ArrayVarExpr struct {
	Name       string
	KeyWidth   uint
	ValueWidth uint
}

// NewArrayVarExpr returns a new instance of ArrayVarExpr.
func NewArrayVarExpr(name string, keyWidth, valueWidth uint) *ArrayVarExpr {
	assert(keyWidth > 0 && valueWidth > 0, "array var %q: invalid widths: %d/%d", name, keyWidth, valueWidth)
	return &ArrayVarExpr{Name: name, KeyWidth: keyWidth, ValueWidth: valueWidth}
}

// String returns a string representation of the expression.
func (e *ArrayVarExpr) String() string {
	return fmt.Sprintf("(array %s %d %d)", e.Name, e.KeyWidth, e.ValueWidth)
}

// ArrayStoreExpr represents a single point update of an array expression.
type ArrayStoreExpr struct {
	Array ArrayExpr
	Key   BVExpr
	Value BVExpr
}

// NewArrayStoreExpr returns a new instance of ArrayStoreExpr.
func NewArrayStoreExpr(array ArrayExpr, key, value BVExpr) *ArrayStoreExpr {
	return &ArrayStoreExpr{Array: array, Key: key, Value: value}
}

// String returns a string representation of the expression.
func (e *ArrayStoreExpr) String() string {
	return fmt.Sprintf("(store %s %s %s)", e.Array, e.Key, e.Value)
}
