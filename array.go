package stoke

import (
	"bytes"
	"fmt"

	"github.com/benbjohnson/immutable"
)

// ArrayValue holds a decoded array model: a sparse mapping from address to
// byte plus a default byte covering every unmapped address. It represents
// both finite explicit memories and infinite uniform backgrounds.
type ArrayValue struct {
	values *immutable.SortedMap
	def    byte
}

// NewArrayValue returns an empty array value with the given default byte.
func NewArrayValue(def byte) *ArrayValue {
	return &ArrayValue{
		values: immutable.NewSortedMap(&uint64Comparer{}),
		def:    def,
	}
}

// Set maps addr to value.
func (a *ArrayValue) Set(addr uint64, value byte) {
	a.values = a.values.Set(addr, value)
}

// Byte returns the byte at addr, or the default byte if addr is unmapped.
func (a *ArrayValue) Byte(addr uint64) byte {
	if value, ok := a.values.Get(addr); ok {
		return value.(byte)
	}
	return a.def
}

// Contains returns true if addr is explicitly mapped.
func (a *ArrayValue) Contains(addr uint64) bool {
	_, ok := a.values.Get(addr)
	return ok
}

// Len returns the number of explicitly mapped addresses.
func (a *ArrayValue) Len() int { return a.values.Len() }

// Default returns the byte covering unmapped addresses.
func (a *ArrayValue) Default() byte { return a.def }

// SetDefault sets the byte covering unmapped addresses.
func (a *ArrayValue) SetDefault(def byte) { a.def = def }

// Iterator returns an iterator over mapped addresses in ascending order.
func (a *ArrayValue) Iterator() *ArrayValueIterator {
	return &ArrayValueIterator{itr: a.values.Iterator()}
}

// String returns a string representation of the array value.
func (a *ArrayValue) String() string {
	var sb bytes.Buffer
	sb.WriteString("{")
	for itr := a.Iterator(); !itr.Done(); {
		addr, value := itr.Next()
		fmt.Fprintf(&sb, "%#x:%#02x ", addr, value)
	}
	fmt.Fprintf(&sb, "*:%#02x}", a.def)
	return sb.String()
}

// ArrayValueIterator iterates over the mapped addresses of an ArrayValue.
type ArrayValueIterator struct {
	itr *immutable.SortedMapIterator
}

// Done returns true when no entries remain.
func (itr *ArrayValueIterator) Done() bool { return itr.itr.Done() }

// Next returns the next address and byte.
func (itr *ArrayValueIterator) Next() (addr uint64, value byte) {
	k, v := itr.itr.Next()
	return k.(uint64), v.(byte)
}

// uint64Comparer compares two 64-bit unsigned integers. Implements immutable.Comparer.
type uint64Comparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not a uint64.
func (c *uint64Comparer) Compare(a, b interface{}) int {
	if i, j := a.(uint64), b.(uint64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
