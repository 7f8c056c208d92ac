package client

import "errors"

var (
	// ErrUnavailable means the server could not be reached.
	ErrUnavailable = errors.New("server unavailable")
	// ErrLoginFailed means the server answered a login with the failure feedback.
	ErrLoginFailed = errors.New("login failed")
	// ErrRejected means the server closed the connection without answering.
	// It does that for an invalid token, a missing file and malformed requests.
	ErrRejected = errors.New("request rejected by server")
	// ErrTransferIncomplete means fewer bytes than declared were moved.
	ErrTransferIncomplete = errors.New("transfer incomplete")
	// ErrInvalidFilename means the name cannot be sent as a single file name.
	ErrInvalidFilename = errors.New("invalid filename")
)
