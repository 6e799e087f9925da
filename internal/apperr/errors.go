package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidPath   = errors.New("invalid path")

	// Proposal handling.
	ErrNotApproved  = errors.New("proposal not approved")
	ErrNoFileBlocks = errors.New("proposal contains no file blocks")
)
