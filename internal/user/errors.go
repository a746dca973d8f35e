package user

import "errors"

var (
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrPersistence matches any *PersistenceError through errors.Is.
	ErrPersistence = errors.New("persistence failure")
)

// PersistenceError wraps a storage fault. The operation was aborted and its
// transaction rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
