package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/api"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

var errNotLoggedIn = errors.New("not logged in")

func describe(err error) string {
	var e *common.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func (a *App) prompt(text string) (string, error) {
	return GetSimpleText(a.reader, text, a.out)
}

func (a *App) password(text string) (string, error) {
	pw, err := GetPassword(a.reader, text, a.out)
	if err != nil {
		return "", err
	}
	defer wipe(pw)
	return string(pw), nil
}

// Register asks for the account fields and creates the account. The role
// prompt may be left empty for a regular user.
func (a *App) Register(ctx context.Context) error {
	var req api.RegisterRequest
	var err error

	if req.Username, err = a.prompt("Enter username"); err != nil {
		return err
	}
	if req.Email, err = a.prompt("Enter email"); err != nil {
		return err
	}
	if req.Password, err = a.password("Enter password"); err != nil {
		return err
	}
	if req.ConfirmPassword, err = a.password("Confirm password"); err != nil {
		return err
	}
	if req.Role, err = a.prompt("Role (user/admin, empty for user)"); err != nil {
		return err
	}

	resp, err := a.api.Register(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, resp.Message)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	userName, err := a.prompt("Enter username")
	if err != nil {
		return err
	}
	password, err := a.password("Enter password")
	if err != nil {
		return err
	}

	pair, err := a.api.Login(ctx, userName, password)
	if err != nil {
		return err
	}

	a.session = session{userName: userName}
	a.store(pair)
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// Verify confirms the email address. The code is prompted for when not given.
func (a *App) Verify(ctx context.Context, code string) error {
	if code == "" {
		var err error
		if code, err = a.prompt("Enter verification code"); err != nil {
			return err
		}
	}

	msg, err := a.api.VerifyEmail(ctx, code)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *App) Resend(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}

	msg, err := a.api.ResendVerification(ctx, email)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

// Refresh rotates the token pair. A rejected refresh token ends the session,
// since the server has already discarded it.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Tokens refreshed")
	return nil
}

func (a *App) refresh(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	pair, err := a.api.Refresh(ctx, a.session.refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			a.session = session{}
		}
		return err
	}

	a.store(pair)
	return nil
}

// Whoami calls the protected endpoint. An expired access token is refreshed
// once and the call retried.
func (a *App) Whoami(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	id, err := a.api.Whoami(ctx, a.session.accessToken)
	if errors.Is(err, common.ErrorUnauthorized) {
		if rerr := a.refresh(ctx); rerr != nil {
			return rerr
		}
		id, err = a.api.Whoami(ctx, a.session.accessToken)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "user: %s\nrole: %s\naudience: %s\nexpires: %s\n",
		id.Sub, id.Role, id.Aud, time.Unix(id.Exp, 0).Format(time.RFC3339))
	return nil
}

// Logout revokes the refresh token and clears the session. The session is
// cleared even when the server cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	err := a.api.Logout(ctx, a.session.refreshToken)
	a.session = session{}
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) store(pair *api.TokenPair) {
	a.session.accessToken = pair.AccessToken
	a.session.refreshToken = pair.RefreshToken
}
