package errors

import "errors"

var (
	ErrNotFound   = errors.New("resource could not be found")
	ErrEmailTaken = errors.New("email address is already in use")
	ErrInvalidUrl = errors.New("url is invalid")

	// Rate limiting
	ErrRateLimited = errors.New("enrichment limit exceeded")
)

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func New(text string) error {
	return errors.New(text)
}

func Join(errs ...error) error {
	return errors.Join(errs...)
}
