package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdrop/internal/client/client"
	"github.com/dmitrijs2005/gophdrop/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) readCredentials() (string, []byte, error) {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return "", nil, err
	}
	if userName == "" {
		return "", nil, errors.New("username must not be empty")
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

// CreateUser prompts for a username and password and prints the server's
// feedback.
func (a *App) CreateUser(ctx context.Context) error {
	userName, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	feedback, err := a.driver.CreateUser(ctx, userName, string(password))
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, feedback)
	return nil
}

// Login prompts for credentials and, on success, stores the session token
// locally so later commands and restarts reuse it.
func (a *App) Login(ctx context.Context) error {
	userName, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	token, err := a.driver.Login(ctx, userName, string(password))
	if err != nil {
		return err
	}

	if err := a.saveToken(ctx, token); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// Logout ends the server session and forgets the local token. The token is
// kept when the server cannot be reached so the logout can be retried.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrNotLoggedIn
	}

	feedback, err := a.driver.Logout(ctx, a.token)
	if err != nil && !errors.Is(err, client.ErrRejected) {
		return err
	}

	if err := a.clearToken(ctx); err != nil {
		return err
	}
	if feedback == "" {
		feedback = "Logged out"
	}
	fmt.Fprintln(a.out, feedback)
	return nil
}
