package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/client/client"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

// Input helpers, swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getMultiline = GetMultiline

// Register prompts for the account details and creates the account.
// It does not log in.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	gender, err := getSimpleText(a.reader, "Enter gender (optional)", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.authService.Register(ctx, client.RegisterRequest{
		Name:     name,
		Email:    email,
		Gender:   gender,
		Password: string(password),
	})
	if err != nil {
		a.report("Registration failed", err)
		return err
	}

	fmt.Fprintf(a.out, "Registered %s, you can login now\n", u.Email)
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}

	u, err := a.authService.Login(ctx, email, password)
	if err != nil {
		a.report("Login unsuccessful", err)
		return err
	}

	a.setMode(ModeOnline)
	fmt.Fprintln(a.out, "Logged in as", u.Display())
	return nil
}

// Logout ends the session. The local session is dropped even if the
// server could not be told.
func (a *App) Logout(ctx context.Context) error {
	err := a.authService.Logout(ctx)
	if err != nil {
		a.report("Server logout failed, local session removed", err)
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	u, ok := a.authService.CurrentUser()
	if !ok {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "%s\nid: %s\n", u.Display(), u.ID)
	return nil
}

// report prints a short, user-facing description of err.
func (a *App) report(prefix string, err error) {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrUnavailable):
		a.setMode(ModeOffline)
		fmt.Fprintf(a.out, "%s: server unavailable\n", prefix)
	case errors.Is(err, client.ErrSessionExpired):
		fmt.Fprintf(a.out, "%s: session expired, please login again\n", prefix)
	case errors.As(err, &apiErr):
		fmt.Fprintf(a.out, "%s: %s\n", prefix, apiErr.Message)
	default:
		fmt.Fprintf(a.out, "%s: %v\n", prefix, err)
	}
}
