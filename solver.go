package stoke

// Solver is the interface to an external decision procedure.
//
// A solver owns at most one model at a time: the model produced by the most
// recent satisfiable IsSat call, invalidated by the next call. The Model*
// methods decode values from that model; the caller must pass the same name
// and widths it asserted with — a mismatch yields undefined results.
//
// A solver is not safe for concurrent use; calls from multiple goroutines
// require external serialization.
type Solver interface {
	// IsSat reports whether the conjunction of constraints is satisfiable.
	// An indeterminate or failed query reports false with a non-nil error.
	IsSat(constraints []BoolExpr) (bool, error)

	// ModelBitVector decodes an asserted bit-vector variable from the model.
	// The width must be a multiple of 8.
	ModelBitVector(name string, bits uint) (BitVector, error)

	// ModelBool decodes an asserted boolean variable from the model.
	ModelBool(name string) (bool, error)

	// ModelArray decodes an asserted array variable from the model.
	ModelArray(name string, keyBits, valueBits uint) (*ArrayValue, error)
}
