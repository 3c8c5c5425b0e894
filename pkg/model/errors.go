package model

import "errors"

// Command-level failures. They are turned into a notice for the invoking session
// and never end its loop.
var (
	ErrNameTaken        = errors.New("name already in use")
	ErrSelfTarget       = errors.New("command cannot target yourself")
	ErrUserNotFound     = errors.New("user not found")
	ErrNoPermission     = errors.New("permission denied")
	ErrMalformedCommand = errors.New("malformed command")
)

// ErrConnectionFault is fatal to one session only.
var ErrConnectionFault = errors.New("connection fault")
