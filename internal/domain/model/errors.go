package model

import (
	"errors"
	"fmt"
)

// Sentinel error kinds shared by every layer. Match them with errors.Is.
var (
	// ErrInvalidCredential: the provider issued no token or rejected it.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrDuplicateAccount: email or OAuth username already taken.
	ErrDuplicateAccount = errors.New("duplicate account")
	// ErrAccountNotFound: no account with the given id.
	ErrAccountNotFound = errors.New("account not found")
	// ErrExternalProvider: the provider failed unexpectedly.
	ErrExternalProvider = errors.New("external provider error")
	// ErrDirectory: the account or score storage failed.
	ErrDirectory = errors.New("directory error")
	// ErrDuplicateSubmission: a score submission reused an idempotency key.
	ErrDuplicateSubmission = errors.New("duplicate submission")
)

// Error attaches an operation name and a kind to an underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind classifies err as kind under op. A nil err yields nil.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap annotates err with op, keeping whatever kind it already carries.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// KindOf returns the first known kind found in err's chain, or nil.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrInvalidCredential,
		ErrDuplicateAccount,
		ErrAccountNotFound,
		ErrExternalProvider,
		ErrDirectory,
		ErrDuplicateSubmission,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
