package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bell-crm/internal/audit"
	"bell-crm/internal/auth"
	"bell-crm/internal/automation"
	"bell-crm/internal/companies"
	"bell-crm/internal/config"
	"bell-crm/internal/contacts"
	"bell-crm/internal/deals"
	"bell-crm/internal/email"
	"bell-crm/internal/forms"
	"bell-crm/internal/httpapi"
	"bell-crm/internal/reporting"
	"bell-crm/internal/tasks"
	"bell-crm/internal/workspace"
	"bell-crm/pkg/logger"
	"bell-crm/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
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

	// Repositories
	contactRepo := contacts.NewPostgresRepo(db)
	companyRepo := companies.NewPostgresRepo(db)
	dealRepo := deals.NewPostgresRepo(db)
	taskRepo := tasks.NewPostgresRepo(db)
	activityRepo := tasks.NewPostgresActivityRepo(db)
	formRepo := forms.NewPostgresRepo(db)
	settingsRepo := automation.NewPostgresSettingsRepo(db)
	accountRepo := email.NewPostgresAccountRepo(db)
	recordRepo := email.NewPostgresRecordRepo(db)
	auditRepo := audit.NewPostgresRepo(db)
	workspaceRepo := workspace.NewPostgresRepo(db)

	// Services. The dispatcher is attached after the runner exists; contact
	// and task writes before that point would simply not trigger recipes.
	dispatcher := &lazyDispatcher{}

	auditSvc := audit.NewService(auditRepo)
	workspaceSvc := workspace.NewService(workspaceRepo)
	companySvc := companies.NewService(companyRepo)
	contactSvc := contacts.NewService(contactRepo, dispatcher, auditSvc, log)
	dealSvc := deals.NewService(dealRepo)
	taskSvc := tasks.NewService(taskRepo, activityRepo, dispatcher, log)
	settings := automation.NewSettings(settingsRepo, rdb, log)

	var oauthCfg = email.OAuthConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.GoogleRedirectURL())
	if cfg.Google.ClientID == "" {
		oauthCfg = nil
	}
	emailSvc := email.NewService(
		accountRepo,
		recordRepo,
		email.NewGmailClient(oauthCfg),
		leadMatcher{svc: contactSvc},
		oauthCfg,
		demoCalendarURL(cfg),
		log,
	)

	runner := automation.NewRunner(
		settings,
		workspaceResolver{ws: workspaceSvc},
		contactDirectory{svc: contactSvc},
		taskSvc,
		stageMover{repo: contactRepo},
		emailSvc,
		auditSvc,
		log,
	)
	dispatcher.runner = runner

	formSvc := forms.NewService(
		formRepo,
		contactSvc,
		redisFormLimiter{rdb: rdb, limit: cfg.Forms.SubmitRateLimit, window: cfg.Forms.SubmitRateWindow},
		log,
	)
	reportingSvc := reporting.NewService(contactSvc, dealSvc, taskSvc, formSvc)

	h := httpapi.Handlers{
		Auth:       authManager,
		Workspaces: workspaceSvc,
		Companies:  companySvc,
		Contacts:   contactSvc,
		Deals:      dealSvc,
		Tasks:      taskSvc,
		Automation: settings,
		Email:      emailSvc,
		Forms:      formSvc,
		Reporting:  reportingSvc,
		Audits:     auditSvc,
		DB:         db,
		Redis:      rdb,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, auth.RequireAccessToken(authManager), h)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
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
}

// demoCalendarURL is interpolated into the demo-booking email template.
func demoCalendarURL(cfg config.Config) string {
	base := cfg.App.BaseURL
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/book-demo"
}
