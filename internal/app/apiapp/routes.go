package apiapp

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yeshi-rangzen/momomi-sub000/internal/config"
	authsvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/auth"
	discoverysvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/discovery"
	matchessvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/matches"
	swipesvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/swipes"
	usagesvc "github.com/yeshi-rangzen/momomi-sub000/internal/services/usage"
	"github.com/yeshi-rangzen/momomi-sub000/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService      *authsvc.Service
	DiscoveryService *discoverysvc.Service
	SwipeService     *swipesvc.Service
	MatchService     *matchessvc.Service
	UsageService     *usagesvc.Service
	Logger           *zap.Logger
	Config           config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	discoveryHandler := handlers.NewDiscoveryHandler(deps.DiscoveryService)
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService)
	limitsHandler := handlers.NewLimitsHandler(deps.UsageService)
	adsHandler := handlers.NewAdsHandler(deps.UsageService)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	internalMW := InternalAuthMiddleware(deps.Config.Auth.InternalToken, deps.Logger)

	r.Get("/healthz", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/internal", func(r chi.Router) {
		r.Use(internalMW)
		r.Post("/auth/session", authHandler.IssueSession)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authMW).Post("/logout", authHandler.Logout)
			r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
		})

		r.With(authMW).Get("/discover", discoveryHandler.Handle)
		r.With(authMW).Post("/swipes", swipeHandler.Handle)
		r.With(authMW).Post("/swipes/undo", swipeHandler.Undo)
		r.With(authMW).Get("/limits", limitsHandler.Handle)
		r.With(authMW).Post("/ads/watched", adsHandler.Watched)
		r.With(authMW).Get("/matches", matchesHandler.List)
		r.With(authMW).Post("/unmatch", matchesHandler.Unmatch)
		r.With(authMW).Post("/block", matchesHandler.Block)
		r.With(authMW).Post("/report", matchesHandler.Report)
	})
}
