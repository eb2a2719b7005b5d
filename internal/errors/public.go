package errors

// Public attaches a user facing message to err without changing what
// errors.Is and errors.As see.
func Public(err error, msg string) error {
	return &publicError{
		msg: msg,
		err: err,
	}
}

type publicError struct {
	msg string
	err error
}

func (pe *publicError) Public() string {
	return pe.msg
}

func (pe *publicError) Error() string {
	if pe.err == nil {
		return pe.msg
	}
	return pe.err.Error()
}

func (pe *publicError) Unwrap() error {
	return pe.err
}
