package statuspage

import "errors"

// Error is a failure that is reported to the client with a status page.
type Error struct {
	Kind  Kind
	Inner error
}

func (err Error) Error() string {
	if err.Inner == nil {
		return err.Kind.String()
	}
	return err.Kind.String() + ": " + err.Inner.Error()
}

// Unwrap returns the inner error.
func (err Error) Unwrap() error {
	return err.Inner
}

// AsError returns the Error in err's chain, if any.
func AsError(err error) (Error, bool) {
	var e Error
	ok := errors.As(err, &e)
	return e, ok
}
