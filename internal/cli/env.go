package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pribylovaa/eventhub-web/internal/api"
	"github.com/pribylovaa/eventhub-web/internal/clients"
	"github.com/pribylovaa/eventhub-web/internal/config"
	"github.com/pribylovaa/eventhub-web/internal/credentials"
	"github.com/pribylovaa/eventhub-web/internal/session"
	"github.com/pribylovaa/eventhub-web/internal/storage"
	"github.com/pribylovaa/eventhub-web/internal/storage/file"
	"github.com/pribylovaa/eventhub-web/pkg/log"
)

// env — всё, что нужно одной команде: конфиг, файл токенов, сессия и клиент API.
type env struct {
	cfg     *config.CLIConfig
	files   *file.Storage
	store   *credentials.MemoryStore
	session *session.Session
	api     *api.Client
	log     *slog.Logger
	// expired — сессия была завершена в ходе команды.
	expired bool
}

// openEnv читает конфиг и сохранённую пару, собирает сессию и клиент.
func openEnv(ctx context.Context, opts *RootOptions, stderr io.Writer) (context.Context, *env, error) {
	const op = "cli.openEnv"

	cfg, err := config.LoadCLI(opts.ConfigPath)
	if err != nil {
		return ctx, nil, fmt.Errorf("%s: %w", op, err)
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	ctx = log.Into(ctx, logger)

	path := cfg.CredentialsFile
	if path == "" {
		if path, err = file.DefaultPath(); err != nil {
			return ctx, nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	files := file.New(path)

	pair, err := files.Load(ctx, cfg.Account)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return ctx, nil, fmt.Errorf("%s: %w", op, err)
	}

	e := &env{cfg: cfg, files: files, log: logger}
	e.store = credentials.NewMemoryStore(pair)

	_, bare := clients.HTTPClients(cfg.Timeout, nil, logger)

	refresher, err := api.New(cfg.BaseURL, nil, bare)
	if err != nil {
		return ctx, nil, fmt.Errorf("%s: %w", op, err)
	}

	e.session = session.New(e.store, refresher, session.Options{
		ID:             cfg.Account,
		RenewalTimeout: cfg.RenewalTimeout,
		Navigator: session.NavigatorFunc(func(context.Context) {
			e.expired = true
		}),
	})

	authed, _ := clients.HTTPClients(cfg.Timeout, e.session, logger)

	e.api, err = api.New(cfg.BaseURL, authed, bare)
	if err != nil {
		return ctx, nil, fmt.Errorf("%s: %w", op, err)
	}

	return ctx, e, nil
}

// save записывает пару в файл, если она изменилась (вход, обновление или очистка).
func (e *env) save(ctx context.Context) error {
	if !e.store.Dirty() {
		return nil
	}

	if err := e.files.Save(ctx, e.cfg.Account, e.store.Snapshot(), 0); err != nil {
		return fmt.Errorf("cli.save: %w", err)
	}

	e.store.MarkClean()

	return nil
}

// errNotLoggedIn — команде нужна сессия, а её нет или она завершилась.
var errNotLoggedIn = errors.New("not logged in: run `ticketctl login`")
