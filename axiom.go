package stoke

// CollectAxioms returns the background axioms implied by the constraint set.
//
// Every pair of applications of the same uninterpreted function yields a
// congruence axiom: pointwise equality of the arguments implies equality of
// the results. The walk visits each shared node once and keeps a
// deterministic order, so collecting over constraints plus their own axioms
// produces the same set again.
func CollectAxioms(constraints []BoolExpr) []BoolExpr {
	var apps []*BVFunctionExpr
	byName := make(map[string][]*BVFunctionExpr)

	walkConstraints(constraints, func(node interface{}) {
		fn, ok := node.(*BVFunctionExpr)
		if !ok {
			return
		}
		apps = append(apps, fn)
		byName[fn.Func.Name] = append(byName[fn.Func.Name], fn)
	})

	var axioms []BoolExpr
	for _, fn := range apps {
		for _, other := range byName[fn.Func.Name] {
			if fn == other {
				break // only pair each application with its predecessors
			}
			// A zero-argument pair has no argument equalities to imply from.
			if len(fn.Args) == 0 || len(fn.Args) != len(other.Args) {
				continue
			}
			axioms = append(axioms, congruenceAxiom(other, fn))
		}
	}
	return axioms
}

// congruenceAxiom returns (a0==b0 && a1==b1 && ...) implies f(a...)==f(b...).
func congruenceAxiom(a, b *BVFunctionExpr) BoolExpr {
	var argsEqual BoolExpr
	for i := range a.Args {
		eq := NewEqExpr(a.Args[i], b.Args[i])
		if argsEqual == nil {
			argsEqual = eq
		} else {
			argsEqual = NewAndExpr(argsEqual, eq)
		}
	}
	return NewBoolBinaryExpr(BoolImplies, argsEqual, NewEqExpr(a, b))
}

// walkConstraints visits every node reachable from constraints exactly once,
// in a deterministic preorder, calling fn for each. Shared sub-terms are
// visited a single time. Uses an explicit stack so the walk depth is
// independent of the Go call stack.
func walkConstraints(constraints []BoolExpr, fn func(node interface{})) {
	seen := make(map[interface{}]struct{})
	stack := make([]interface{}, 0, len(constraints))
	for i := len(constraints) - 1; i >= 0; i-- {
		stack = append(stack, constraints[i])
	}

	push := func(nodes ...interface{}) {
		for i := len(nodes) - 1; i >= 0; i-- {
			stack = append(stack, nodes[i])
		}
	}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := seen[node]; ok {
			continue
		}
		seen[node] = struct{}{}
		fn(node)

		switch node := node.(type) {
		case *BoolConstantExpr, *BoolVarExpr, *BVConstantExpr, *BVVarExpr, *ArrayVarExpr:
			// leaf
		case *BoolNotExpr:
			push(node.Expr)
		case *BoolBinaryExpr:
			push(node.LHS, node.RHS)
		case *CompareExpr:
			push(node.LHS, node.RHS)
		case *ArrayEqExpr:
			push(node.LHS, node.RHS)
		case *ForAllExpr:
			push(node.Body)
		case *BVBinaryExpr:
			push(node.LHS, node.RHS)
		case *BVNotExpr:
			push(node.Expr)
		case *BVNegExpr:
			push(node.Expr)
		case *BVIteExpr:
			push(node.Cond, node.Then, node.Else)
		case *BVConcatExpr:
			push(node.MSB, node.LSB)
		case *BVExtractExpr:
			push(node.Expr)
		case *BVSignExtendExpr:
			push(node.Expr)
		case *BVFunctionExpr:
			for i := len(node.Args) - 1; i >= 0; i-- {
				stack = append(stack, node.Args[i])
			}
		case *BVSelectExpr:
			push(node.Array, node.Key)
		case *ArrayStoreExpr:
			push(node.Array, node.Key, node.Value)
		default:
			panic("unreachable")
		}
	}
}
