// Package client is the gophdrop command driver.
//
// # Overview
//
// Every operation on Client is one complete connection: dial, send the
// command tag and its fields, read the response, close. Nothing is kept
// open between calls, so a Client is safe for concurrent use.
//
//   - CreateUser / Login / Logout: credential and session commands. Login
//     returns the bearer token only when the server answers with the
//     success feedback.
//   - Upload: streams a local file in 4 KiB chunks after its size.
//   - Download: writes the file into the download directory.
//   - List: returns the names stored on the server.
//
// The package also bootstraps the client's local SQLite database
// (OpenDatabase, RunMigrations) that the REPL uses to persist the token.
//
// # Error Handling
//
// Conditions callers branch on are sentinel errors matched with errors.Is:
// ErrUnavailable, ErrLoginFailed, ErrRejected, ErrTransferIncomplete,
// ErrInvalidFilename.
package client
