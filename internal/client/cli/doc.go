// Package cli provides the interactive gophdrop command-line client.
//
// It wires configuration, the local token store and the command driver into
// a small REPL:
//
//	create_user       create an account
//	login             authenticate and remember the session token
//	logout            end the session and forget the token
//	send <file>       upload a local file
//	get <file>        download a file into the download directory
//	list              list files stored on the server
//	help              show available commands
//	exit | quit       leave the program
//
// The token survives restarts in the local SQLite database until logout.
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
