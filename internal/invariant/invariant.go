// Package invariant reports broken internal invariants of the cache structures.
//
// A violation means the cache itself has a bug (for example, unlinking a node
// that is not in the list, or popping an empty heap). It is never caused by
// caller input, so it is raised as a panic rather than returned as an error.
package invariant

import "fmt"

// Violation is the panic value used for broken internal invariants.
type Violation struct {
	Op  string // structure operation that detected the violation, e.g. "dlist.Unlink"
	Msg string
}

func (v *Violation) Error() string { return "invariant violation: " + v.Op + ": " + v.Msg }

// Panicf panics with a *Violation for op.
func Panicf(op, format string, args ...any) {
	panic(&Violation{Op: op, Msg: fmt.Sprintf(format, args...)})
}
