package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/studyshare/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// 発見フィード
	DiscoveryService DiscoveryServiceInterface
	FeedVersion      *FeedVersion

	// 投票
	VoteService VoteServiceInterface

	// 学習リスト
	StudyListService StudyListServiceInterface

	// 課金
	BillingService   BillingServiceInterface
	WebhookProcessor WebhookProcessorInterface

	// ユーザー
	UserService UserServiceInterface

	// リンクタイトル
	LinkTitleService LinkTitleServiceInterface

	// サポート
	SupportService SupportServiceInterface

	// メトリクスのスクレイプエンドポイント（nil許容）
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → (Session) → RateLimit
//
// Webhookルートは署名で認証するためセッションミドルウェアの外に、
// 発見フィードは任意セッションで配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効く共通ミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	discoveryHandler := NewDiscoveryHandler(deps.DiscoveryService, deps.FeedVersion)
	voteHandler := NewVoteHandler(deps.VoteService)
	listHandler := NewStudyListHandler(deps.StudyListService)
	billingHandler := NewBillingHandler(deps.BillingService)
	webhookHandler := NewWebhookHandler(deps.WebhookProcessor)
	userHandler := NewUserHandler(deps.UserService)
	linkTitleHandler := NewLinkTitleHandler(deps.LinkTitleService)
	supportHandler := NewSupportHandler(deps.SupportService)

	// --- 認証不要のルート ---

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 決済プロバイダWebhook（署名検証で認証する）
	r.Post("/api/webhooks/stripe", webhookHandler.HandleStripe)

	// 発見フィード（未ログインでも閲覧可。ログイン中なら自分の投票が載る）
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOptionalSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/discovery", discoveryHandler.Fetch)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// リスト操作
		r.Route("/api/lists/{id}", func(r chi.Router) {
			// POST /api/lists/{id}/vote - 投票（投票専用レート制限を追加）
			r.With(deps.RateLimiter.VoteMiddleware()).Post("/vote", voteHandler.CastVote)
			r.Post("/copy", listHandler.CopyList)
		})

		// 課金
		r.Route("/api/billing", func(r chi.Router) {
			r.Post("/checkout", billingHandler.CreateCheckout)
			r.Post("/checkout/lifetime", billingHandler.CreateLifetimeCheckout)
			r.Get("/subscription", billingHandler.GetSubscription)
			r.Post("/subscription/cancel", billingHandler.CancelSubscription)
		})

		// ユーザー情報
		r.Route("/api/me", func(r chi.Router) {
			r.Get("/", userHandler.GetMe)
			r.Post("/dismiss-downgrade-notice", userHandler.DismissDowngradeNotice)
		})

		// リンクタイトル解決
		r.Get("/api/link-title", linkTitleHandler.ResolveTitle)
		r.Get("/api/youtube-title", linkTitleHandler.ResolveYouTubeTitle)

		// サポート問い合わせ
		r.Post("/api/support/tickets", supportHandler.CreateTicket)
	})

	return r
}
