// Command market is a terminal client for the marketplace. It keeps the
// signed-in session on disk between runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/sudo-init-do/bazaar/internal/api"
	"github.com/sudo-init-do/bazaar/internal/auth"
	"github.com/sudo-init-do/bazaar/internal/config"
	"github.com/sudo-init-do/bazaar/internal/identity"
	"github.com/sudo-init-do/bazaar/internal/marketplace"
	"github.com/sudo-init-do/bazaar/internal/messaging"
	"github.com/sudo-init-do/bazaar/internal/session"
	"github.com/sudo-init-do/bazaar/internal/upload"
	"github.com/sudo-init-do/bazaar/internal/user"
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"signup":    {"-email E -password P [-name N]", cmdSignUp},
	"signin":    {"-email E -password P", cmdSignIn},
	"signout":   {"", cmdSignOut},
	"whoami":    {"", cmdWhoAmI},
	"feed":      {"[-limit N] [-offset N]", cmdFeed},
	"listing":   {"[-lang L] <listing-id>", cmdListing},
	"sell":      {"-title T -price P [-description D] [-quantity Q] [-condition C] [-draft] <image>...", cmdSell},
	"buy":       {"[-quantity Q] <listing-id>", cmdBuy},
	"orders":    {"[-status S]", cmdOrders},
	"order":     {"<order-id>", cmdOrder},
	"messages":  {"", cmdConversations},
	"thread":    {"<user-id>", cmdThread},
	"send":      {"<user-id> <text>...", cmdSend},
	"profile":   {"<user-id>", cmdProfile},
	"translate": {"-to L <listing-id>", cmdTranslate},
	"suggest":   {"-title T -description D [-condition C] [-lang L]", cmdSuggest},
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(os.Stderr, "usage: market <command> [flags]")
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].usage)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(ctx, cfg, logger)
	err = cmd.run(ctx, a, os.Args[2:])
	a.close()
	if err != nil {
		if errors.Is(err, identity.ErrNotAuthenticated) {
			log.Fatalf("%s: sign in first with `market signin`", os.Args[1])
		}
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	auth    *identity.Auth
	session *session.Manager

	accounts *auth.Service
	users    *user.Service
	market   *marketplace.Service
	messages *messaging.Service
	uploader *upload.StorageUploader
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) *app {
	provider := identity.NewAuth(
		identity.NewRESTBackend(cfg.Firebase.APIKey, identity.WithEmulator(cfg.Firebase.AuthEmulatorHost)),
		identity.WithStore(identity.NewFileStore(cfg.SessionFile)),
		identity.WithLogger(logger),
	)
	backend := api.New(cfg.API.BaseURL, api.WithTimeout(cfg.API.Timeout), api.WithLogger(logger))
	users := user.NewService(user.NewClient(backend), provider)

	var opts []session.Option
	opts = append(opts, session.WithLogger(logger))
	if cfg.AppURL != "" {
		opts = append(opts, session.WithCookieSync(api.New(cfg.AppURL, api.WithTimeout(cfg.API.Timeout), api.WithLogger(logger))))
	}
	mgr := session.New(provider, users.FetchProfile, opts...)
	mgr.Start()
	provider.Start(ctx)

	return &app{
		cfg:      cfg,
		logger:   logger,
		auth:     provider,
		session:  mgr,
		accounts: auth.NewService(provider, users),
		users:    users,
		market: marketplace.NewService(marketplace.NewClient(backend), mgr,
			marketplace.WithImagePolicy(marketplace.ImagePolicy{Hosts: cfg.Images.Hosts}),
			marketplace.WithLogger(logger),
		),
		messages: messaging.NewService(messaging.NewClient(backend), mgr),
		uploader: upload.NewStorageUploader(cfg.Firebase.StorageBucket, mgr,
			upload.WithStorageEmulator(cfg.Firebase.StorageEmulatorHost),
		),
	}
}

// settled waits until the session has left its loading phases.
func (a *app) settled(ctx context.Context) session.State {
	ch := make(chan session.State, 1)
	unsubscribe := a.session.Subscribe(func(st session.State) {
		if !st.Loading {
			select {
			case ch <- st:
			default:
			}
		}
	})
	defer unsubscribe()

	if st := a.session.State(); !st.Loading {
		return st
	}
	select {
	case st := <-ch:
		return st
	case <-ctx.Done():
		return a.session.State()
	}
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.session.WaitSynced(ctx); err != nil {
		a.logger.Warn("auth token cookie not synced", "error", err)
	}
	a.session.Close()
}
