package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yeshi-rangzen/momomi-sub000/internal/config"
	"github.com/yeshi-rangzen/momomi-sub000/internal/infra/push"
	s3infra "github.com/yeshi-rangzen/momomi-sub000/internal/infra/s3"
	pgrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/postgres"
	redrepo "github.com/yeshi-rangzen/momomi-sub000/internal/repo/redis"
	authsvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/auth"
	discoverysvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/discovery"
	matchessvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/matches"
	ratesvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/rate"
	subssvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/subscriptions"
	swipesvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/swipes"
	usagesvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/usage"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	publisher  *push.Publisher
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	var redisClient *goredis.Client
	if c, err := redrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Warn("redis init failed, continuing in degraded mode", zap.Error(err))
	} else {
		redisClient = c
	}

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	var publisher *push.Publisher
	if p, err := push.NewPublisher(cfg.Rabbit.URI, cfg.Rabbit.Exchange, log); err != nil {
		log.Warn("rabbitmq init failed, continuing without push events", zap.Error(err))
	} else {
		publisher = p
	}

	sessionRepo := redrepo.NewSessionRepo(redisClient)
	cacheRepo := redrepo.NewCacheRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)

	profileRepo := pgrepo.NewProfileRepo(pool)
	swipeRepo := pgrepo.NewSwipeRepo(pool)
	conversationRepo := pgrepo.NewConversationRepo(pool)
	blockRepo := pgrepo.NewBlockRepo(pool)
	usageRepo := pgrepo.NewUsageRepo(pool)
	subscriptionRepo := pgrepo.NewSubscriptionRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, cfg.Auth.SessionTTL)
	subscriptionService := subssvc.NewService(subscriptionRepo)
	rateLimiter := ratesvc.NewLimiter(
		rateRepo,
		cfg.Limits.PremiumRatePerMinute,
		cfg.Limits.PremiumRatePer10Sec,
	)
	usageService := usagesvc.NewService(pool, usageRepo, subscriptionService, usagesvc.Config{
		FreeLikesPerDay:         cfg.Limits.FreeLikesPerDay,
		FreeSuperLikesPerWeek:   cfg.Limits.FreeSuperLikesPerWeek,
		PremiumSuperLikesPerDay: cfg.Limits.PremiumSuperLikesPerDay,
		AdsWatchedPerDay:        cfg.Limits.AdsWatchedPerDay,
		BonusLikesPerAd:         cfg.Limits.BonusLikesPerAd,
		DefaultTimezone:         cfg.Discovery.DefaultTimezone,
	})

	photoSigner := s3infra.NewPhotoSigner(s3Client, cfg.S3.Bucket, cfg.S3.SignTTL)
	discoveryService := discoverysvc.NewService(profileRepo, cacheRepo, subscriptionService, photoSigner, discoverysvc.Config{
		DefaultCount:    cfg.Discovery.DefaultCount,
		MaxCount:        cfg.Discovery.MaxCount,
		GlobalOverFetch: cfg.Discovery.GlobalOverFetch,
		CacheTTL:        cfg.Discovery.CacheTTL,
	})

	var notifier swipesvc.Notifier
	if publisher != nil {
		notifier = publisher
	}
	swipeService := swipesvc.NewService(swipesvc.Dependencies{
		Pool:          pool,
		SwipeStore:    swipeRepo,
		Conversations: conversationRepo,
		UsageStore:    usageRepo,
		Restrictions:  blockRepo,
		Profiles:      profileRepo,
		Subscriptions: subscriptionService,
		RateLimiter:   rateLimiter,
		QuotaView:     usageService,
		Cache:         cacheRepo,
		Notifier:      notifier,
		Presence:      authService,
	}, swipesvc.Config{
		FreeLikesPerDay:         cfg.Limits.FreeLikesPerDay,
		FreeSuperLikesPerWeek:   cfg.Limits.FreeSuperLikesPerWeek,
		PremiumSuperLikesPerDay: cfg.Limits.PremiumSuperLikesPerDay,
		UndoWindow:              cfg.Limits.UndoWindow,
		DefaultTimezone:         cfg.Discovery.DefaultTimezone,
		PageSizes:               cfg.Discovery.PageSizes,
	})
	matchesService := matchessvc.NewService(matchessvc.Dependencies{
		Pool:          pool,
		Conversations: conversationRepo,
		SwipeStore:    swipeRepo,
		BlockStore:    blockRepo,
		Cache:         cacheRepo,
	}, matchessvc.Config{
		ListLimit: cfg.Matches.ListLimit,
		CacheTTL:  cfg.Matches.CacheTTL,
		PageSizes: cfg.Discovery.PageSizes,
	})

	RegisterRoutes(r, Dependencies{
		AuthService:      authService,
		DiscoveryService: discoveryService,
		SwipeService:     swipeService,
		MatchService:     matchesService,
		UsageService:     usageService,
		Logger:           log,
		Config:           cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		publisher:  publisher,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
