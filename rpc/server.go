package rpc

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"arclend/protocol"
)

// Options tune the HTTP server. A nil JWTSecret leaves the admin routes
// unreachable.
type Options struct {
	JWTSecret     []byte
	RatePerSecond float64
	Burst         int
	Logger        *slog.Logger
}

// Server exposes the protocol ledger over a JSON HTTP API.
type Server struct {
	ledger  *protocol.Ledger
	log     *slog.Logger
	secret  []byte
	limiter *rate.Limiter
}

// NewServer wraps the ledger with the HTTP surface.
func NewServer(ledger *protocol.Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 50
	}
	if opts.Burst <= 0 {
		opts.Burst = 100
	}
	return &Server{
		ledger:  ledger,
		log:     opts.Logger,
		secret:  opts.JWTSecret,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(rateLimit(s.limiter))
	r.Use(requestLog(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireAdminToken(s.secret))
			r.Post("/admin/assets", s.handleRegisterAsset)
			r.Post("/admin/price", s.handleUpdatePrice)
			r.Post("/admin/prices", s.handleUpdatePrices)
			r.Post("/admin/rates", s.handleUpdateRates)
			r.Post("/admin/collateral", s.handleConfigureCollateral)
			r.Post("/admin/mint", s.handleMint)
		})

		r.Post("/pool/deposits", s.handleDeposit)
		r.Post("/pool/withdrawals", s.handleWithdraw)
		r.Post("/collateral/deposits", s.handleDepositCollateral)
		r.Post("/collateral/withdrawals", s.handleWithdrawCollateral)
		r.Post("/loans", s.handleBorrow)
		r.Post("/loans/{id}/repay", s.handleRepay)
		r.Post("/liquidations", s.handleLiquidate)

		r.Get("/assets/{asset}", s.handleAssetStatus)
		r.Get("/prices/{asset}", s.handleGetPrice)
		r.Get("/prices/{asset}/unsafe", s.handleGetPriceUnsafe)
		r.Get("/rates", s.handleRateParams)
		r.Get("/collateral/{asset}", s.handleCollateralConfig)
		r.Get("/pools/{asset}", s.handlePoolStats)
		r.Get("/positions/{id}", s.handlePosition)
		r.Get("/positions/{id}/owed", s.handleOwed)
		r.Get("/balances/{account}/{asset}", s.handleBalance)
		r.Get("/deposits/{account}/{asset}", s.handleDepositOf)
		r.Get("/events", s.handleEvents)
	})
	return r
}
