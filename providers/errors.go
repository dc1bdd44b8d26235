package providers

import "errors"

var (
	// ErrDatabaseIsNotReadyYet returns if you are trying to access
	// an offline provider but it haven't opened a database yet.
	ErrDatabaseIsNotReadyYet = errors.New("database is not initialized yet")

	// ErrDatabasePathIsRequired is returned if offline provider was
	// configured without a path to the database.
	ErrDatabasePathIsRequired = errors.New("path to the database is required")
)
