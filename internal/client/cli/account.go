package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/keygate/internal/client/cache"
	"github.com/dmitrijs2005/keygate/internal/client/client"
	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/rpc"
)

// Register creates an account and caches its session.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := getPassword(a.out, "Repeat password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(password) != string(confirm) {
		return errors.New("passwords do not match")
	}

	cctx, cancel := a.call(ctx)
	defer cancel()

	resp, err := a.client.Register(cctx, userName, string(password), email)
	if err != nil {
		return err
	}

	if err := a.cache.SaveSession(ctx, cache.Session{UserName: resp.User.Username, IdentityToken: resp.Token}); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered %s (uid %d)\n", resp.User.Username, resp.User.UID)
	return nil
}

// Check verifies credentials and this machine, then caches the session.
// It fails with ErrNoActiveSubscription when the account has no active plan;
// the session is cached anyway so a key can be activated.
func (a *App) Check(ctx context.Context) error {
	prompt := "Enter username"
	cached, _ := a.cache.LoadSession(ctx)
	if cached != nil && cached.UserName != "" {
		prompt = fmt.Sprintf("Enter username [%s]", cached.UserName)
	}

	userName, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return err
	}
	if userName == "" && cached != nil {
		userName = cached.UserName
	}

	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	machine, err := resolveHWID(a.config.HWID)
	if err != nil {
		return err
	}

	cctx, cancel := a.call(ctx)
	defer cancel()

	resp, err := a.client.CheckSubscription(cctx, userName, string(password), machine)
	if err != nil {
		if errors.Is(err, client.ErrForbidden) {
			fmt.Fprintln(a.out, "This account is bound to another machine. Redeem a hardware reset key or contact support.")
		}
		return err
	}

	if err := a.cache.SaveSession(ctx, cache.Session{UserName: resp.User.Username, IdentityToken: resp.Token}); err != nil {
		return err
	}

	return a.welcome(&resp.User)
}

// Resume verifies the cached session without asking for credentials.
func (a *App) Resume(ctx context.Context) error {
	u, err := a.resume(ctx)
	if err != nil {
		return err
	}
	return a.welcome(u)
}

func (a *App) resume(ctx context.Context) (*rpc.UserInfo, error) {
	sess, err := a.cache.LoadSession(ctx)
	if err != nil {
		if errors.Is(err, cache.ErrNoSession) {
			return nil, ErrNotLoggedIn
		}
		return nil, err
	}
	a.client.SetIdentityToken(sess.IdentityToken)

	cctx, cancel := a.call(ctx)
	defer cancel()

	u, err := a.client.CheckIdentity(cctx)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) || errors.Is(err, client.ErrNotFound) {
			_ = a.cache.ClearSession(ctx)
			return nil, fmt.Errorf("%w: %v", ErrNotLoggedIn, err)
		}
		return nil, err
	}
	return u, nil
}

// Launch tries the cached session first and falls back to Check.
func (a *App) Launch(ctx context.Context) error {
	u, err := a.resume(ctx)
	switch {
	case err == nil && u.Subscription.Active:
		return a.welcome(u)
	case err == nil:
		fmt.Fprintln(a.out, "Subscription expired or not found.")
	case errors.Is(err, ErrNotLoggedIn):
	default:
		return err
	}

	return a.Check(ctx)
}

func (a *App) welcome(u *rpc.UserInfo) error {
	if !u.Subscription.Active {
		fmt.Fprintf(a.out, "Hello, %s. You have no active subscription.\n", u.Username)
		fmt.Fprintln(a.out, "Redeem an activation key with: keygate activate CODE")
		return ErrNoActiveSubscription
	}

	fmt.Fprintf(a.out, "Welcome, %s!\n", u.Username)
	fmt.Fprintf(a.out, "Subscription: %s\n", describeSubscription(u.Subscription))
	return nil
}

// Activate redeems code for the cached user.
func (a *App) Activate(ctx context.Context, code string) error {
	if err := a.useCachedSession(ctx); err != nil {
		return err
	}

	cctx, cancel := a.call(ctx)
	defer cancel()

	resp, err := a.client.ActivateKey(cctx, code)
	if err != nil {
		return err
	}

	if resp.HWIDReset {
		fmt.Fprintln(a.out, "Hardware binding cleared. The next check binds this machine.")
	} else {
		fmt.Fprintf(a.out, "Activated %s key.\n", resp.KeyType)
	}
	fmt.Fprintf(a.out, "Subscription: %s\n", describeSubscription(resp.Subscription))
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	if err := a.useCachedSession(ctx); err != nil {
		return err
	}

	oldPassword, err := getPassword(a.out, "Current password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldPassword)

	newPassword, err := getPassword(a.out, "New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(newPassword)

	confirm, err := getPassword(a.out, "Repeat new password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(newPassword) != string(confirm) {
		return errors.New("passwords do not match")
	}

	cctx, cancel := a.call(ctx)
	defer cancel()

	if err := a.client.ChangePassword(cctx, string(oldPassword), string(newPassword)); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Password changed.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.cache.ClearSession(ctx); err != nil {
		return err
	}
	a.client.SetIdentityToken("")
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *App) useCachedSession(ctx context.Context) error {
	sess, err := a.cache.LoadSession(ctx)
	if err != nil {
		if errors.Is(err, cache.ErrNoSession) {
			return ErrNotLoggedIn
		}
		return err
	}
	a.client.SetIdentityToken(sess.IdentityToken)
	return nil
}
