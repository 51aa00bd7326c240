package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"call-desk/internal/audit"
	"call-desk/internal/auth"
	"call-desk/internal/calls"
	"call-desk/internal/config"
	"call-desk/internal/events"
	"call-desk/internal/metrics"
	"call-desk/internal/notify"
	"call-desk/internal/rbac"
	"call-desk/internal/reporting"
	"call-desk/internal/routing"
	"call-desk/internal/staff"
	"call-desk/internal/storage"
	"call-desk/internal/telephony"
	"call-desk/internal/voicemail"
	"call-desk/pkg/logger"
	"call-desk/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	issueFor := flag.String("issue-token", "", "print an access token for this staff id and exit")
	issueRole := flag.String("role", rbac.RoleStaff, "role claim for -issue-token")
	flag.Parse()

	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, logger.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	slog.SetDefault(log)

	directory, err := staff.Load(cfg.Staff.File)
	if err != nil {
		log.Error("staff directory load failed", "err", err)
		os.Exit(1)
	}

	var authManager *auth.Manager
	if cfg.Auth.Enabled() {
		authManager, err = auth.NewManager(cfg.Auth)
		if err != nil {
			log.Error("auth init failed", "err", err)
			os.Exit(1)
		}
	}

	if *issueFor != "" {
		if err := issueToken(authManager, directory, *issueFor, *issueRole); err != nil {
			log.Error("issue token failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	m := metrics.New()
	bus := events.NewRedisBus(rdb, events.DefaultChannel, m)

	callSvc := calls.NewService(calls.NewPostgresRepository(db))
	callSvc.Staff = directory
	callSvc.Audit = audit.NewService(audit.NewPostgresRepo(db))
	callSvc.Events = bus
	callSvc.Location = cfg.Location()

	recordings := telephony.NewRecordingClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.RecordingHosts, 30*time.Second)
	dispatcher := notify.NewDispatcher(notify.Config{
		APIKey:       cfg.Chat.APIKey,
		SenderNumber: cfg.Chat.SenderNumber,
		Recipient:    cfg.Chat.Recipient,
		BaseURL:      cfg.Chat.BaseURL,
	}, m)
	if !dispatcher.Enabled() {
		log.Warn("chat notifications disabled", "reason", "CHAT_API_KEY, CHAT_SENDER_NUMBER or CHAT_RECIPIENT missing")
	}

	webhooks := &telephony.WebhookHandler{
		Calls: callSvc,
		Policy: routing.NewPolicy(
			cfg.Inbound.Mode,
			cfg.App.PublicBaseURL,
			cfg.Inbound.Greeting,
			cfg.Inbound.Language,
			cfg.Inbound.MaxLengthSeconds,
		),
		Notifier:                dispatcher,
		Metrics:                 m,
		NotifyOnStatusCompleted: cfg.Chat.NotifyOnStatusCompleted,
	}
	if cfg.Storage.Enabled() {
		store, err := storage.NewMinioStore(rootCtx, storage.MinioConfig{
			Endpoint:      cfg.Storage.Endpoint,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			Bucket:        cfg.Storage.Bucket,
			UseSSL:        cfg.Storage.UseSSL,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
			PublicPrefix:  voicemail.KeyPrefix + "/",
		})
		if err != nil {
			log.Error("object storage init failed", "err", err)
			os.Exit(1)
		}
		webhooks.Archiver = voicemail.NewArchiver(recordings, store, m)
	} else {
		log.Warn("voicemail archiving disabled", "reason", "STORAGE_ENDPOINT not set")
	}

	deps := routeDeps{
		db:       db,
		auth:     authManager,
		metrics:  m,
		bus:      bus,
		calls:    callSvc,
		stats:    reporting.NewService(callSvc),
		staff:    directory,
		webhooks: webhooks,
		proxy: &telephony.AudioProxy{
			Source:  recordings,
			Limiter: utils.NewConcurrencyCap(rdb, "call-desk:audio-proxy:", cfg.AudioProxy.MaxConcurrent, 2*time.Minute),
			Metrics: m,
		},
	}
	if cfg.Twilio.ValidateSignature {
		deps.signature = telephony.RequireSignature(cfg.Twilio.AuthToken, cfg.App.PublicBaseURL)
	}
	if authManager == nil {
		log.Warn("staff API is unauthenticated", "reason", "JWT_SECRET not set")
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Proxied recordings can be large; SSE clears its own deadline.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "inbound_mode", cfg.Inbound.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}

// issueToken prints an access token for local dashboard use.
func issueToken(m *auth.Manager, dir *staff.Directory, staffID, role string) error {
	if m == nil {
		return errors.New("JWT_SECRET is not set; the staff API is open")
	}
	if role != rbac.RoleStaff && role != rbac.RoleAdmin {
		return fmt.Errorf("unknown role %q", role)
	}
	if _, ok := dir.Profile(staffID); !ok {
		slog.Warn("staff id not in directory", "staff_id", staffID)
	}
	pair, err := m.IssuePair(time.Now(), staffID, role)
	if err != nil {
		return err
	}
	fmt.Println(pair.AccessToken)
	return nil
}
