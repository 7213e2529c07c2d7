package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/loteria-client/internal/config"
	"github.com/DoyleJ11/loteria-client/internal/console"
	"github.com/DoyleJ11/loteria-client/internal/fetch"
	"github.com/DoyleJ11/loteria-client/internal/httpapi"
	"github.com/DoyleJ11/loteria-client/internal/hub"
	"github.com/DoyleJ11/loteria-client/internal/logging"
	"github.com/DoyleJ11/loteria-client/internal/match"
	"github.com/DoyleJ11/loteria-client/internal/notify"
	"github.com/DoyleJ11/loteria-client/internal/store"
	"github.com/DoyleJ11/loteria-client/internal/store/gormstore"
	"github.com/DoyleJ11/loteria-client/internal/store/sqlite"
	"github.com/DoyleJ11/loteria-client/internal/supervisor"
	"github.com/DoyleJ11/loteria-client/internal/transport"
)

const shutdownTimeout = 5 * time.Second

func main() {
	create := flag.Bool("create", false, "create a new match and host it")
	join := flag.Int64("join", 0, "join the match with this code")
	matchID := flag.Int64("match", 0, "poll this match id")
	list := flag.Int("list", 0, "print this page of open matches and exit")
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		config.Exitf("config: %v", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		config.Exitf("logger: %v", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, options{create: *create, join: *join, matchID: *matchID, list: *list}); err != nil {
		log.Error("client stopped", zap.Error(err))
		os.Exit(1)
	}
}

type options struct {
	create  bool
	join    int64
	matchID int64
	list    int
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger, opts options) error {
	client, err := transport.New(cfg.ServerURL,
		transport.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		transport.WithLogger(log.Named("transport")),
	)
	if err != nil {
		return err
	}

	identity, err := login(ctx, client, cfg)
	if err != nil {
		return err
	}
	log.Info("logged in", zap.Int64("user_id", identity.ID), zap.String("email", identity.Email))

	if opts.list > 0 {
		return printOpenMatches(ctx, client, opts.list)
	}

	ms, err := openStore(cfg)
	if err != nil {
		return err
	}

	h := hub.NewHub(ctx, log.Named("hub"))
	var presenters supervisor.Presenters
	var navigators supervisor.Navigators
	presenters = append(presenters, h)
	navigators = append(navigators, h)
	if cfg.Console {
		c := console.New(os.Stdout)
		presenters = append(presenters, c)
		navigators = append(navigators, c)
	}

	sup, err := supervisor.New(ctx, supervisor.Config{PollInterval: cfg.PollInterval}, supervisor.Deps{
		Fetcher:   fetch.New(client, identity, log.Named("fetch")),
		Commands:  client,
		Auth:      client,
		Store:     ms,
		Notifier:  notify.NewManager(cfg.NotifyTTL),
		Navigator: navigators,
		Presenter: presenters,
		Logger:    log.Named("supervisor"),
	})
	if err != nil {
		h.Close()
		return multierr.Combine(err, ms.Close())
	}

	if err := enter(ctx, client, sup, opts); err != nil {
		log.Warn("no match to follow yet", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.SetupRoutes(sup, h, log.Named("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("control api listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		sup.Close()
		h.Close()
		return multierr.Append(err, ms.Close())
	})
	return g.Wait()
}

func login(ctx context.Context, client *transport.Client, cfg config.Config) (match.Identity, error) {
	if cfg.Email == "" || cfg.Password == "" {
		return match.Identity{}, errors.New("LOTERIA_EMAIL and LOTERIA_PASSWORD are required")
	}
	if _, err := client.Login(ctx, cfg.Email, cfg.Password); err != nil {
		return match.Identity{}, err
	}
	return client.Me(ctx)
}

// enter picks the match to follow: a new one, a joined one, an explicit id,
// or whatever was persisted by the last run.
func enter(ctx context.Context, client *transport.Client, sup *supervisor.Supervisor, opts options) error {
	switch {
	case opts.create:
		id, err := client.CreateMatch(ctx)
		if err != nil {
			return err
		}
		return sup.Start(ctx, id)
	case opts.join > 0:
		id, err := client.JoinMatch(ctx, opts.join)
		if err != nil {
			return err
		}
		return sup.Start(ctx, id)
	case opts.matchID > 0:
		return sup.Start(ctx, opts.matchID)
	default:
		return sup.Resume(ctx)
	}
}

func openStore(cfg config.Config) (store.MatchStore, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		return sqlite.Open(cfg.SQLitePath)
	case config.DriverPostgres:
		return gormstore.Open(cfg.PostgresDSN, cfg.Profile)
	default:
		return store.NewMemory(), nil
	}
}

func printOpenMatches(ctx context.Context, client *transport.Client, page int) error {
	p, err := client.ListMatches(ctx, page)
	if err != nil {
		return err
	}
	rows := [][]string{{"Code", "Host", "Players", "Created"}}
	for _, m := range p.Matches {
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			m.HostEmail,
			strconv.Itoa(m.TotalPlayers) + "/" + strconv.Itoa(m.MaxPlayers),
			m.CreatedAt,
		})
	}
	pterm.Info.Printfln("Open matches, page %d of %d", p.Current, p.Last)
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
