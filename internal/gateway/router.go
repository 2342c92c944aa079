package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourorg/simbroker/internal/auth"
)

func NewRouter(h *Handlers, hub *Hub, jwtSvc *auth.JWTService) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5174"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/auth/register", h.Register)
	r.Post("/api/auth/login", h.Login)

	// Market data is public; prices are simulated.
	r.Route("/api/market", func(r chi.Router) {
		r.Get("/tickers", h.ListTickers)
		r.Get("/tickers/{symbol}", h.GetTicker)
		r.Get("/tickers/{symbol}/latest", h.LatestBar)
		r.Get("/tickers/{symbol}/bars", h.BarSeries)
		r.Post("/tickers/{symbol}/simulate", h.SimulateTick)
		r.Get("/news", h.RecentNews)
		r.Get("/news/{symbol}", h.NewsByTicker)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(jwtSvc))

		r.Get("/me", h.Me)
		r.Get("/leaderboard", h.Leaderboard)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
			r.Put("/{id}/members", h.SetAccountMember)
			r.Get("/{id}/risk-limits", h.GetRiskLimits)
			r.Patch("/{id}/risk-limits", h.UpdateRiskLimits)
			r.Get("/{id}/orders", h.ListOrders)
			r.Get("/{id}/positions", h.Positions)
			r.Get("/{id}/positions/{symbol}", h.NetPosition)
			r.Get("/{id}/valuation", h.AccountValuation)
			r.Get("/{id}/transactions.csv", h.ExportTransactions)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.CreateOrder)
			r.Get("/pending", h.PendingApprovals)
			r.Get("/{id}", h.GetOrder)
			r.Post("/{id}/cancel", h.CancelOrder)
			r.Post("/{id}/approve", h.ApproveOrder)
		})

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", h.ListGroups)
			r.Post("/", h.CreateGroup)
			r.Get("/discover", h.DiscoverGroups)
			r.Get("/{id}", h.GetGroup)
			r.Patch("/{id}", h.RenameGroup)
			r.Delete("/{id}", h.DeleteGroup)
			r.Post("/{id}/join", h.JoinGroup)
			r.Post("/{id}/members", h.AddGroupMember)
			r.Delete("/{id}/members/{userID}", h.RemoveGroupMember)
			r.Get("/{id}/orders", h.GroupOrders)
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", h.GetWatchlist)
			r.Put("/{symbol}", h.AddToWatchlist)
			r.Delete("/{symbol}", h.RemoveFromWatchlist)
		})
	})

	r.Get("/ws", ServeWS(hub, h.logger))

	return r
}
