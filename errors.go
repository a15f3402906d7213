package main

import "errors"

// Validation failures.
var (
	ErrMissingFields   = errors.New("email, password and name are required")
	ErrEmailTaken      = errors.New("an identity with this email already exists")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrInvalidDuration = errors.New("ban duration must be a positive number of days")
)

// Lookup and permission failures.
var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrNotLoggedIn      = errors.New("not logged in")
	ErrNoActiveChat     = errors.New("no active chat")
	ErrReadOnlyChat     = errors.New("chat is read-only")
	ErrMessageNotFound  = errors.New("message not found")
	ErrNotOwner         = errors.New("message belongs to another user")
	ErrNotAdmin         = errors.New("admin privileges required")
	ErrUserNotFound     = errors.New("user not found")
	ErrChatNotFound     = errors.New("chat not found")
	ErrSelfChat         = errors.New("cannot start a chat with yourself")
)
