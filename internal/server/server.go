package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/AsukuOnukaba/tingle-sub000/internal/auth"
	"github.com/AsukuOnukaba/tingle-sub000/internal/config"
	"github.com/AsukuOnukaba/tingle-sub000/internal/content"
	"github.com/AsukuOnukaba/tingle-sub000/internal/email"
	"github.com/AsukuOnukaba/tingle-sub000/internal/paystack"
	"github.com/AsukuOnukaba/tingle-sub000/internal/purchase"
	"github.com/AsukuOnukaba/tingle-sub000/internal/realtime"
	"github.com/AsukuOnukaba/tingle-sub000/internal/subscription"
	"github.com/AsukuOnukaba/tingle-sub000/internal/transfer"
	"github.com/AsukuOnukaba/tingle-sub000/internal/user"
	"github.com/AsukuOnukaba/tingle-sub000/internal/wallet"
	"github.com/AsukuOnukaba/tingle-sub000/internal/withdrawal"
)

// Deps are the shared services main constructs once and the router wires
// into handlers.
type Deps struct {
	DB          *sqlx.DB
	Gateway     *paystack.Client
	Publisher   *realtime.Publisher
	Email       *email.Service
	Wallets     *wallet.Repository
	Transfers   *transfer.Service
	Withdrawals *withdrawal.Service
}

type Server struct {
	router *gin.Engine
	config *config.Config
	http   *http.Server
}

func New(cfg *config.Config, deps Deps) *Server {
	registerValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())

	userRepo := user.NewRepository(deps.DB)
	userHandler := user.NewHandler(user.NewService(userRepo, cfg.JWTSecret))

	purchaseRepo := purchase.NewRepository(deps.DB)
	subscriptionRepo := subscription.NewRepository(deps.DB)

	contentRepo := content.NewRepository(deps.DB)
	contentService := content.NewService(contentRepo, &entitlementChecker{
		purchases:     purchaseRepo,
		subscriptions: subscriptionRepo,
	})
	contentHandler := content.NewHandler(contentService)

	walletHandler := wallet.NewHandler(deps.Wallets, deps.Gateway, cfg.CallbackURL)
	transferHandler := transfer.NewHandler(deps.Transfers)
	subscriptionHandler := subscription.NewHandler(subscription.NewService(subscriptionRepo, deps.Transfers, deps.Email), subscriptionRepo)
	purchaseHandler := purchase.NewHandler(purchase.NewService(purchaseRepo, contentRepo, deps.Transfers), purchaseRepo)
	withdrawalHandler := withdrawal.NewHandler(deps.Withdrawals, withdrawal.NewRepository(deps.DB))
	webhookHandler := NewWebhookHandler(deps.Gateway, deps.Wallets, userRepo, deps.Withdrawals, deps.Publisher)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.Refresh)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	// Money-moving routes carry a tighter per-IP budget than reads.
	moneyLimit := RateLimitMiddleware(5, 10)

	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.Me)

		protected.GET("/wallet", walletHandler.GetBalance)
		protected.POST("/wallet/topup", moneyLimit, walletHandler.TopUp)
		protected.GET("/wallet/transactions", walletHandler.ListTransactions)

		protected.POST("/tips", moneyLimit, transferHandler.Tip)

		protected.GET("/content", contentHandler.ListByCreator)
		protected.GET("/content/:itemID", contentHandler.GetItem)
		protected.POST("/content/:itemID/purchase", moneyLimit, purchaseHandler.Buy)
		protected.GET("/purchases", purchaseHandler.ListPurchases)

		protected.GET("/plans", subscriptionHandler.ListPlans)
		protected.POST("/subscriptions", moneyLimit, subscriptionHandler.Subscribe)
		protected.GET("/subscriptions", subscriptionHandler.ListSubscriptions)
		protected.DELETE("/subscriptions/:creatorID", subscriptionHandler.Unsubscribe)

		protected.POST("/withdrawals", moneyLimit, withdrawalHandler.Request)
		protected.GET("/withdrawals", withdrawalHandler.List)
	}

	creator := router.Group("/")
	creator.Use(authMiddleware, auth.RequireRole(user.RoleCreator))
	{
		creator.POST("/content", contentHandler.CreateItem)
		creator.POST("/plans", subscriptionHandler.CreatePlan)
	}

	router.POST("/webhooks/paystack", webhookHandler.Handle)
	router.GET("/health", Health(deps.DB))
	router.GET("/metrics", Metrics())

	return &Server{
		router: router,
		config: cfg,
		http: &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: router,
		},
	}
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Router exposes the engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
