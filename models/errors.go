package models

import "errors"

// Common errors
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomExists        = errors.New("room name already exists")
	ErrNotAuthorized     = errors.New("only the room host can perform this action")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrEmailTaken        = errors.New("email already registered")
	ErrBadLogin          = errors.New("invalid email or password")
)
