// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/studyshare/internal/billing"
	"github.com/hitoshi/studyshare/internal/config"
	"github.com/hitoshi/studyshare/internal/database"
	"github.com/hitoshi/studyshare/internal/discovery"
	"github.com/hitoshi/studyshare/internal/handler"
	"github.com/hitoshi/studyshare/internal/linktitle"
	"github.com/hitoshi/studyshare/internal/logger"
	"github.com/hitoshi/studyshare/internal/metrics"
	"github.com/hitoshi/studyshare/internal/middleware"
	"github.com/hitoshi/studyshare/internal/repository"
	"github.com/hitoshi/studyshare/internal/security"
	"github.com/hitoshi/studyshare/internal/studylist"
	"github.com/hitoshi/studyshare/internal/support"
	"github.com/hitoshi/studyshare/internal/user"
	"github.com/hitoshi/studyshare/internal/vote"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	listRepo := repository.NewPostgresStudyListRepo(db)
	voteRepo := repository.NewPostgresVoteRepo(db)
	ticketRepo := repository.NewPostgresSupportTicketRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. フィード世代カウンタ（投票・複製の書き込みでETagを無効化する）
	feedVersion := &handler.FeedVersion{}

	// 5. ドメインサービスの初期化
	voteService := vote.NewService(voteRepo, listRepo, feedVersion, collector)
	discoveryService := discovery.NewService(listRepo, voteRepo, collector)
	copyService := studylist.NewService(listRepo, security.NewContentSanitizer(), feedVersion)
	userService := user.NewService(userRepo)
	linkTitleService := linktitle.NewService(cfg.LinkFetchTimeout, cfg.LinkFetchMaxSize)

	// 6. 課金サービスの初期化
	gateway := billing.NewStripeGateway(cfg.StripeSecretKey, cfg.BaseURL)
	billingService := billing.NewService(
		userRepo, gateway, collector,
		cfg.StripePriceMonthly, cfg.StripePriceYearly, cfg.StripePriceLifetime,
	)
	reconciler := billing.NewReconciler(userRepo, listRepo, collector)
	webhookProcessor := billing.NewWebhookProcessor(
		cfg.StripeWebhookSecret, userRepo, reconciler, collector,
	)

	// 7. サポートサービスの初期化
	// SendGrid未設定の場合はメール通知なしで受け付ける
	var mailer support.Mailer
	if m := support.NewSendGridMailer(cfg.SendGridAPIKey, cfg.SupportEmail, cfg.SupportFromAddr); m != nil {
		mailer = m
	} else {
		slog.Warn("SendGrid is not configured, support notification emails are disabled")
	}
	supportService := support.NewService(ticketRepo, mailer)

	// 8. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralPerMinute = cfg.RateLimitGeneral
	rateLimiterCfg.VotePerMinute = cfg.RateLimitVote

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),

		DiscoveryService: discoveryService,
		FeedVersion:      feedVersion,

		VoteService:      voteService,
		StudyListService: copyService,

		BillingService:   billingService,
		WebhookProcessor: webhookProcessor,

		UserService:      userService,
		LinkTitleService: linkTitleService,
		SupportService:   supportService,

		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
