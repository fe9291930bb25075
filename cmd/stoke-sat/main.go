package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	stoke "github.com/muqsit-azeem/equivalence-checker-stoke"
	"github.com/muqsit-azeem/equivalence-checker-stoke/z3"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err == flag.ErrHelp {
		os.Exit(1)
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stoke-sat", flag.ContinueOnError)
	debugDir := fs.String("debug-dir", "", "write SMT-LIB dumps of each query to this directory")
	fs.Usage = usage
	if err := fs.Parse(args); err != nil {
		return err
	}

	s := z3.NewSolver()
	defer s.Close()
	s.DebugDir = *debugDir

	// Sample equivalence query: is there an input where the two rewrites
	// of "clear the low byte" disagree?
	//
	//   target:  x & 0xFFFFFF00
	//   rewrite: (x >> 8) << 8
	x := stoke.NewBVVarExpr("x", 32)
	target := stoke.NewBVBinaryExpr(stoke.AND, x, stoke.NewBVConstantExpr(0xFFFFFF00, 32))
	rewrite := stoke.NewBVBinaryExpr(stoke.SHL,
		stoke.NewBVBinaryExpr(stoke.LSHR, x, stoke.NewBVConstantExpr(8, 32)),
		stoke.NewBVConstantExpr(8, 32),
	)
	constraints := []stoke.BoolExpr{
		stoke.NewCompareExpr(stoke.NE, target, rewrite),
	}

	satisfiable, err := s.IsSat(constraints)
	if err != nil {
		return err
	}
	if !satisfiable {
		fmt.Println("unsat: target and rewrite agree on all inputs")
		return nil
	}

	value, err := s.ModelBitVector("x", 32)
	if err != nil {
		return err
	}
	fmt.Printf("sat: counterexample x = %s\n", value)

	stats := s.Stats()
	fmt.Printf("queries=%d solve_time=%s\n", stats.SolveN, stats.SolveTime)
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `
Stoke-sat checks a sample rewrite equivalence query against Z3.

Usage:

	stoke-sat [arguments]

The arguments are:

	-debug-dir DIR
	    write SMT-LIB dumps of each query to DIR
`[1:])
}
