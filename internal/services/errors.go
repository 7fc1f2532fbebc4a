package services

import "errors"

// Validation failures returned by the coordinator. None of them is fatal; the
// caller is expected to re-issue a corrected request. The text is what
// clients see in error events and acknowledgements.
var (
	ErrEmptyUsername      = errors.New("username is required")
	ErrUsernameTooLong    = errors.New("username is too long")
	ErrUsernameConflict   = errors.New("username already taken")
	ErrNotAuthenticated   = errors.New("user not authenticated")
	ErrMissingChannelName = errors.New("channel name is required")
	ErrMissingFields      = errors.New("channel and message are required")
	ErrNotInChannel       = errors.New("you are not in this channel")
	ErrInvalidNames       = errors.New("invalid channel names")
	ErrChannelNotFound    = errors.New("channel does not exist")
	ErrNameTaken          = errors.New("new channel name already exists")
	ErrMessageNotFound    = errors.New("message not found")
	ErrPermissionDenied   = errors.New("permission denied")
)
