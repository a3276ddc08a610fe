package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/keygate/internal/common"
)

// Admin runs an administrative subcommand. The admin token comes from
// configuration (-k).
func (a *App) Admin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.help()
		return fmt.Errorf("%w: keygate admin COMMAND", ErrUsage)
	}

	cmd, rest := args[0], args[1:]

	switch cmd {
	case "issue-key":
		return a.issueKey(ctx, rest)
	case "keys":
		return a.listKeys(ctx)
	case "users":
		return a.listUsers(ctx)
	case "reset-hwid":
		uid, err := parseUID(rest, "reset-hwid")
		if err != nil {
			return err
		}
		cctx, cancel := a.call(ctx)
		defer cancel()
		if err := a.client.ResetHardware(cctx, uid); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Hardware binding cleared for uid %d.\n", uid)
		return nil
	case "delete-user":
		uid, err := parseUID(rest, "delete-user")
		if err != nil {
			return err
		}
		cctx, cancel := a.call(ctx)
		defer cancel()
		if err := a.client.DeleteUser(cctx, uid); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "User %d deleted.\n", uid)
		return nil
	case "wipe":
		return a.wipe(ctx)
	default:
		return fmt.Errorf("%w: unknown admin command %q", ErrUsage, cmd)
	}
}

func (a *App) issueKey(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: keygate admin issue-key TYPE DAYS", ErrUsage)
	}
	days, err := strconv.Atoi(args[1])
	if err != nil || days < 0 {
		return fmt.Errorf("%w: DAYS must be a non-negative integer", ErrUsage)
	}

	cctx, cancel := a.call(ctx)
	defer cancel()

	key, err := a.client.IssueKey(cctx, args[0], days)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, key.Code)
	return nil
}

func (a *App) listKeys(ctx context.Context) error {
	cctx, cancel := a.call(ctx)
	defer cancel()

	keys, err := a.client.ListKeys(cctx)
	if err != nil {
		return err
	}
	return printKeys(a.out, keys)
}

func (a *App) listUsers(ctx context.Context) error {
	cctx, cancel := a.call(ctx)
	defer cancel()

	users, err := a.client.ListUsers(cctx)
	if err != nil {
		return err
	}
	return printUsers(a.out, users)
}

func (a *App) wipe(ctx context.Context) error {
	confirm, err := getSimpleText(a.reader, "This deletes every user and key. Type 'wipe' to continue", a.out)
	if err != nil {
		return err
	}
	if confirm != "wipe" {
		fmt.Fprintln(a.out, "Aborted.")
		return nil
	}

	secret, err := getPassword(a.out, "Wipe secret")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)

	cctx, cancel := a.call(ctx)
	defer cancel()

	res, err := a.client.WipeAll(cctx, string(secret))
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Deleted %d users and %d keys.\n", res.UsersDeleted, res.KeysDeleted)
	if res.ArchiveKey != "" {
		fmt.Fprintf(a.out, "Snapshot archived as %s\n", res.ArchiveKey)
	}
	return nil
}

func parseUID(args []string, cmd string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: keygate admin %s UID", ErrUsage, cmd)
	}
	uid, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || uid <= 0 {
		return 0, fmt.Errorf("%w: UID must be a positive integer", ErrUsage)
	}
	return uid, nil
}
