package typesystem

import "fmt"

// UnifyError reports two types that could not be made equal.
type UnifyError struct {
	Left   Type
	Right  Type
	Reason string
}

func (e *UnifyError) Error() string {
	msg := fmt.Sprintf("cannot unify %s with %s", e.Left, e.Right)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func newUnifyError(l, r Type, reason string) *UnifyError {
	return &UnifyError{Left: Resolve(l), Right: Resolve(r), Reason: reason}
}

// VoidError reports a void value in a position that needs a value.
type VoidError struct {
	Role string
}

func (e *VoidError) Error() string {
	return fmt.Sprintf("%s must not be void", e.Role)
}

// DisallowVoid fails when t is void. role names the offending position
// ("argument", "tuple component", ...).
func DisallowVoid(t Type, role string) error {
	if IsVoid(t) {
		return &VoidError{Role: role}
	}
	return nil
}
