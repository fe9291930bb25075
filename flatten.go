package stoke

// SplitConjunctions decomposes every top-level conjunction in constraints
// into its atomic operands. Non-conjunction constraints pass through
// unchanged. Output order follows a left-to-right walk of each input so the
// result is deterministic.
//
// Uses an explicit stack so decomposition depth is independent of the Go
// call stack.
func SplitConjunctions(constraints []BoolExpr) []BoolExpr {
	split := make([]BoolExpr, 0, len(constraints))

	stack := make([]BoolExpr, 0, len(constraints))
	for i := len(constraints) - 1; i >= 0; i-- {
		stack = append(stack, constraints[i])
	}

	for len(stack) > 0 {
		constraint := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if and, ok := constraint.(*BoolBinaryExpr); ok && and.Op == BoolAnd {
			stack = append(stack, and.RHS, and.LHS) // LHS pops first
			continue
		}
		split = append(split, constraint)
	}
	return split
}
