// Package z3 lowers stoke constraints into the Z3 decision procedure and
// decodes satisfying assignments back into stoke value types.
package z3

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	stoke "github.com/muqsit-azeem/equivalence-checker-stoke"
)

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
*/
import "C"

// Ensure solver implements interface.
var _ stoke.Solver = (*Solver)(nil)

// Solver implements stoke.Solver on top of an embedded Z3 context.
//
// Each IsSat call runs against a fresh Z3 solver session. The model of the
// most recent satisfiable call is retained until the next call or Close.
// A Solver must not be shared between goroutines without serialization.
type Solver struct {
	ctx         *Context
	model       C.Z3_model // retained model, nil unless last result was sat
	interrupted atomic.Bool
	stats       Stats
	queryN      int

	// DebugDir, when non-empty, receives one SMT-LIB2 dump per IsSat call,
	// written just before the solver is invoked. Observational only.
	DebugDir string

	// Logger receives array-decode diagnostics. Defaults to the standard logger.
	Logger *log.Logger
}

// NewSolver returns a new instance of Solver.
func NewSolver() *Solver {
	return &Solver{
		ctx:    NewContext(),
		Logger: log.Default(),
	}
}

// Close releases the retained model and deletes the underlying Z3 context.
func (s *Solver) Close() error {
	s.releaseModel()
	return s.ctx.Close()
}

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	return s.stats
}

// Interrupt requests cooperative cancellation of the current or next IsSat
// call. The flag is sampled before each constraint is lowered and before the
// decision procedure is invoked; an in-progress Z3 check is not preempted.
// Safe to call from other goroutines.
func (s *Solver) Interrupt() {
	s.interrupted.Store(true)
}

// checkInterrupt consumes a pending interrupt request, if any.
func (s *Solver) checkInterrupt() error {
	if s.interrupted.CompareAndSwap(true, false) {
		return stoke.ErrInterrupted
	}
	return nil
}

func (s *Solver) releaseModel() {
	if s.model != nil {
		C.Z3_model_dec_ref(s.ctx.raw, s.model)
		s.model = nil
	}
}

// IsSat reports whether the conjunction of constraints is satisfiable.
//
// Constraints are augmented with their background axioms, split into atomic
// conjuncts, typechecked, lowered, and asserted. Lowering may emit derived
// side constraints (e.g. the non-zero divisor guard for signed division);
// these run through the same pipeline until none remain.
func (s *Solver) IsSat(constraints []stoke.BoolExpr) (satisfiable bool, err error) {
	t := time.Now()
	defer func() {
		s.stats.SolveN++
		s.stats.SolveTime += time.Since(t)
	}()

	s.releaseModel()
	s.queryN++

	solver := C.Z3_mk_solver(s.ctx.raw)
	if err := s.ctx.err("Z3_mk_solver"); err != nil {
		return false, err
	}
	C.Z3_solver_inc_ref(s.ctx.raw, solver)
	defer C.Z3_solver_dec_ref(s.ctx.raw, solver)

	// Original constraints first, implied axioms after.
	all := make([]stoke.BoolExpr, 0, len(constraints))
	all = append(all, constraints...)
	all = append(all, stoke.CollectAxioms(constraints)...)

	// Typecheck, lower & assert until lowering emits no further constraints.
	var tc stoke.Typechecker
	conv := newConverter(s.ctx)
	pending := stoke.SplitConjunctions(all)
	for len(pending) > 0 {
		if err := s.checkInterrupt(); err != nil {
			return false, err
		}

		for _, constraint := range pending {
			if err := s.checkInterrupt(); err != nil {
				return false, err
			}
			if err := tc.Check(constraint); err != nil {
				return false, err
			}

			ast, err := conv.boolAST(constraint)
			if err != nil {
				return false, err
			}
			C.Z3_solver_assert(s.ctx.raw, solver, ast)
			if err := s.ctx.err("Z3_solver_assert"); err != nil {
				return false, err
			}
		}
		pending = stoke.SplitConjunctions(conv.takeDerived())
	}

	if err := s.checkInterrupt(); err != nil {
		return false, err
	}
	if s.DebugDir != "" {
		s.dumpQuery(solver)
	}

	ret := C.Z3_solver_check(s.ctx.raw, solver)
	if err := s.ctx.err("Z3_solver_check"); err != nil {
		return false, err
	}

	switch ret {
	case C.Z3_L_FALSE:
		return false, nil

	case C.Z3_L_TRUE:
		model := C.Z3_solver_get_model(s.ctx.raw, solver)
		if err := s.ctx.err("Z3_solver_get_model"); err != nil {
			return true, err
		}
		C.Z3_model_inc_ref(s.ctx.raw, model)
		s.model = model
		return true, nil

	case C.Z3_L_UNDEF:
		reason := C.GoString(C.Z3_solver_get_reason_unknown(s.ctx.raw, solver))
		switch {
		case strings.Contains(reason, "timeout"):
			return false, stoke.ErrSolverTimeout
		case strings.Contains(reason, "canceled"):
			return false, stoke.ErrSolverCanceled
		case strings.Contains(reason, "(resource limits reached)"):
			return false, stoke.ErrSolverResourceLimit
		case strings.Contains(reason, "unknown"):
			return false, stoke.ErrSolverUnknown
		default:
			return false, fmt.Errorf("%w: %s", stoke.ErrSolverUnknown, reason)
		}

	default:
		panic(fmt.Sprintf("z3.Solver.IsSat: impossible solver outcome: %d", ret))
	}
}

// dumpQuery writes the fully-lowered query in SMT-LIB2 form. Best effort;
// failures are logged and otherwise ignored.
func (s *Solver) dumpQuery(solver C.Z3_solver) {
	text := C.GoString(C.Z3_solver_to_string(s.ctx.raw, solver))
	path := filepath.Join(s.DebugDir, fmt.Sprintf("query-%03d.smt2", s.queryN))
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		s.Logger.Printf("[z3] cannot write query dump: %v", err)
	}
}

// Context represents a Z3 context object that is used for constructing expressions.
type Context struct {
	raw C.Z3_context
}

// NewContext returns a new instance of Context.
func NewContext() *Context {
	config := C.Z3_mk_config()
	defer C.Z3_del_config(config)

	raw := C.Z3_mk_context(config)
	C.Z3_set_error_handler(raw, nil)
	C.Z3_set_ast_print_mode(raw, C.Z3_PRINT_SMTLIB2_COMPLIANT)
	return &Context{raw: raw}
}

// Close deletes the underlying Z3 context.
func (ctx *Context) Close() error {
	C.Z3_del_context(ctx.raw)
	return ctx.err("Z3_del_context")
}

// err returns the error for the last API call. Returns nil if last call was successful.
func (ctx *Context) err(op string) error {
	if code := C.Z3_get_error_code(ctx.raw); code != C.Z3_OK {
		return &Error{Code: int(code), Op: op, Message: C.GoString(C.Z3_get_error_msg(ctx.raw, code))}
	}
	return nil
}

// Error represents an error from the Z3 API.
type Error struct {
	Code    int
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
}

// Stats holds counters for solver invocations.
type Stats struct {
	SolveN    int
	SolveTime time.Duration
}
