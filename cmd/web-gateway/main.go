package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/eventhub-web/internal/clients"
	"github.com/pribylovaa/eventhub-web/internal/config"
	"github.com/pribylovaa/eventhub-web/internal/credentials"
	"github.com/pribylovaa/eventhub-web/internal/guard"
	gwhttp "github.com/pribylovaa/eventhub-web/internal/http"
	"github.com/pribylovaa/eventhub-web/internal/http/handlers"
	"github.com/pribylovaa/eventhub-web/internal/metrics"
	"github.com/pribylovaa/eventhub-web/internal/profile"
	"github.com/pribylovaa/eventhub-web/internal/session"
	"github.com/pribylovaa/eventhub-web/internal/storage"
	redisstore "github.com/pribylovaa/eventhub-web/internal/storage/redis"
	"github.com/pribylovaa/eventhub-web/internal/websession"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting web-gateway", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	cl, err := clients.New(rootCtx, *cfg, log)
	if err != nil {
		log.Error("clients_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if cerr := cl.Close(); cerr != nil {
			log.Warn("clients_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	log.Info("clients_initialized")

	m := metrics.New(prometheus.DefaultRegisterer)

	policy, _ := cfg.Profile.Policy() // проверено в config.Validate

	var (
		backend storage.Credentials
		rs      *redisstore.Storage
	)

	if cfg.Session.Backend == config.BackendRedis {
		rs, err = redisstore.New(rootCtx, cfg.Session.RedisURL, cfg.Session.Prefix)
		if err != nil {
			log.Error("redis_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}

		defer func() {
			if cerr := rs.Close(); cerr != nil {
				log.Warn("redis_close_failed", slog.String("err", cerr.Error()))
			}
		}()

		backend = rs
	}

	if cfg.Session.HashKey == "" {
		log.Warn("session_keys_generated", slog.String("hint", "cookies will not survive restart"))
	}

	mgr, err := websession.New(websession.Options{
		CookieName: cfg.Session.CookieName,
		HashKey:    []byte(cfg.Session.HashKey),
		BlockKey:   []byte(cfg.Session.BlockKey),
		Secure:     !cfg.Session.Insecure,
		MaxAge:     cfg.Session.MaxAge,
		Backend:    backend,
		TTL:        cfg.Profile.CacheTTL,
		NewSession: func(id string, store credentials.Store) *session.Session {
			return session.New(store, cl.API, session.Options{
				ID:             id,
				RenewalTimeout: cfg.Auth.RenewalTimeout,
				Leeway:         cfg.Auth.ExpiryLeeway,
				Navigator:      websession.Navigator,
				Observer:       m,
			})
		},
		NewProvider: func(s *session.Session) *profile.Provider {
			return profile.NewProvider(cl.API, profile.Options{
				Policy:        policy,
				HasCredential: func() bool { return s.State().Active() },
				FetchTimeout:  cfg.Upstream.Timeout,
			})
		},
	})
	if err != nil {
		log.Error("sessions_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	routes := handlers.Routes{
		Login:      cfg.Routes.Login,
		Home:       cfg.Routes.Home,
		Completion: cfg.Routes.Completion,
	}

	pages := gwhttp.NewRouter(cl, gwhttp.Options{
		Logger:   log,
		Timeout:  cfg.Timeouts.Service,
		Sessions: mgr,
		Routes:   routes,
		Metrics:  m,
		Guards: guard.New(guard.Options{
			LoginPath:      routes.Login,
			HomePath:       routes.Home,
			CompletionPath: routes.Completion,
			LoadingWait:    cfg.Profile.LoadingWait,
			Recorder:       m,
		}),
	})

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := cl.Ready(ctx); err != nil {
			http.Error(w, "upstream not ready", http.StatusServiceUnavailable)
			return
		}

		if rs != nil {
			if err := rs.Ping(ctx); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/", pages)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("gateway_ready",
		slog.String("session_backend", cfg.Session.Backend),
		slog.String("profile_policy", policy.String()),
	)

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
