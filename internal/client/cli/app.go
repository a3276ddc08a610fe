package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/keygate/internal/client/cache"
	"github.com/dmitrijs2005/keygate/internal/client/client"
	"github.com/dmitrijs2005/keygate/internal/client/config"
	"github.com/dmitrijs2005/keygate/internal/client/hwid"
)

var (
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrNotLoggedIn          = errors.New("not logged in, run 'keygate check' first")
	ErrUsage                = errors.New("usage")
)

// getSimpleText, getPassword and resolveHWID are indirections swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	resolveHWID   = hwid.Resolve
)

// SessionCache persists the identity token between runs.
type SessionCache interface {
	SaveSession(ctx context.Context, sess cache.Session) error
	LoadSession(ctx context.Context) (*cache.Session, error)
	ClearSession(ctx context.Context) error
}

type App struct {
	config *config.Config
	client client.Client
	cache  SessionCache
	db     *sql.DB
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	db, err := cache.Open(ctx, c.CacheDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing session cache: %w", err)
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr, c.AdminToken)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	store := cache.NewStore(db)
	if machine, err := resolveHWID(c.HWID); err == nil {
		store = store.WithSecret([]byte(machine))
	}

	return &App{
		config: c,
		client: apiClient,
		cache:  store,
		db:     db,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) Close() error {
	err := a.client.Close()
	if a.db != nil {
		if dbErr := a.db.Close(); err == nil {
			err = dbErr
		}
	}
	return err
}

// Run executes the subcommand named by args[0]; no arguments means launch.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.Launch(ctx)
	}

	cmd, rest := args[0], args[1:]

	switch cmd {
	case "launch":
		return a.Launch(ctx)
	case "register":
		return a.Register(ctx)
	case "check":
		return a.Check(ctx)
	case "resume":
		return a.Resume(ctx)
	case "activate":
		if len(rest) != 1 {
			return fmt.Errorf("%w: keygate activate CODE", ErrUsage)
		}
		return a.Activate(ctx, rest[0])
	case "passwd":
		return a.ChangePassword(ctx)
	case "logout":
		return a.Logout(ctx)
	case "admin":
		return a.Admin(ctx, rest)
	case "help", "-h", "--help":
		a.help()
		return nil
	default:
		a.help()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

// call bounds a single request by the configured timeout. Prompts happen
// outside it.
func (a *App) call(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

func (a *App) help() {
	fmt.Fprintln(a.out, "Usage: keygate [flags] [command]")
	fmt.Fprintln(a.out, "Commands: launch (default), register, check, resume, activate CODE, passwd, logout, admin")
	fmt.Fprintln(a.out, "Admin: issue-key TYPE DAYS, keys, users, reset-hwid UID, delete-user UID, wipe")
}
