// Package httpapi serves the payment creation endpoint and the provider
// webhook.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/BatmanBruc/sub-pay-bot/internal/billing"
	"github.com/BatmanBruc/sub-pay-bot/internal/lava"
	"github.com/BatmanBruc/sub-pay-bot/internal/payload"
	"github.com/BatmanBruc/sub-pay-bot/internal/reconcile"
	"github.com/BatmanBruc/sub-pay-bot/internal/signature"
	"github.com/BatmanBruc/sub-pay-bot/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultMaxBodyBytes = 1 << 20

type PaymentCreator interface {
	CreatePaymentLink(ctx context.Context, req billing.Request) (*billing.Link, error)
}

type Reconciler interface {
	Apply(ctx context.Context, ev reconcile.Event) (reconcile.Outcome, error)
}

type Config struct {
	WebhookKey     string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
	// TelegramPath mounts TelegramHandler when both are set.
	TelegramPath    string
	TelegramHandler http.Handler
}

type Server struct {
	payments   PaymentCreator
	reconciler Reconciler
	cfg        Config
	limiter    *ipLimiter
	log        *slog.Logger
}

func NewServer(payments PaymentCreator, reconciler Reconciler, cfg Config, logger *slog.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "httpapi")
	return &Server{
		payments:   payments,
		reconciler: reconciler,
		cfg:        cfg,
		limiter:    newIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
		log:        logger,
	}
}

func (s *Server) loggingRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				s.log.Error("panic recovered",
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", fmt.Sprint(rvr),
					"stack", string(debug.Stack()),
				)
				respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			s.log.Info("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingRecoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	// RealIP trusts X-Forwarded-For, so the limiter assumes a trusted proxy in
	// front. The signed webhook is not limited: the provider retries from a
	// few shared addresses and only 401/400/404/200 are valid answers there.
	r.Route("/api", func(r chi.Router) {
		r.With(s.limiter.middleware).Post("/payments/create", s.handleCreatePayment)
		r.Post("/webhook/lava", s.handleLavaWebhook)
	})

	if s.cfg.TelegramPath != "" && s.cfg.TelegramHandler != nil {
		r.Post(s.cfg.TelegramPath, s.cfg.TelegramHandler.ServeHTTP)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createPaymentRequest struct {
	TelegramID int64  `json:"telegram_id" validate:"required,gt=0"`
	Username   string `json:"username" validate:"max=255"`
	PlanID     string `json:"plan_id" validate:"required"`
}

type createPaymentResponse struct {
	PaymentURL string `json:"payment_url"`
	PlanID     string `json:"plan_id"`
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	req.PlanID = strings.ToLower(strings.TrimSpace(req.PlanID))
	if err := validateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	link, err := s.payments.CreatePaymentLink(r.Context(), billing.Request{
		TelegramID: req.TelegramID,
		Username:   strings.TrimSpace(req.Username),
		PlanID:     types.PlanID(req.PlanID),
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, createPaymentResponse{
		PaymentURL: link.PaymentURL,
		PlanID:     string(link.PlanID),
	})
}

func (s *Server) handleLavaWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		respondWebhookError(w, http.StatusBadRequest, "invalid_json", "cannot read request body")
		return
	}

	if !signature.Verify(r.Header, body, s.cfg.WebhookKey) {
		s.log.Warn("webhook signature rejected", "request_id", middleware.GetReqID(r.Context()))
		respondWebhookError(w, http.StatusUnauthorized, "invalid_signature", "invalid signature")
		return
	}

	data, err := payload.Decode(body)
	if err != nil {
		respondWebhookError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return
	}
	txID := payload.ExtractTransactionID(data)
	if txID == "" {
		respondWebhookError(w, http.StatusBadRequest, "missing_transaction_id", "transaction id is missing")
		return
	}

	out, err := s.reconciler.Apply(r.Context(), reconcile.Event{
		Status:        payload.ExtractStatus(data),
		TransactionID: txID,
	})
	switch {
	case err == nil:
	case errors.Is(err, types.ErrNotFound):
		respondWebhookError(w, http.StatusNotFound, "payment_not_found", "payment not found")
		return
	default:
		s.log.Error("webhook processing failed", "transaction_id", txID, "error", err)
		respondWebhookError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	resp := webhookResponse{OK: true, Idempotent: out.Idempotent, Status: string(out.Result)}
	if out.Result == reconcile.ResultIgnoredUnknown {
		raw := out.RawStatus
		resp.RawStatus = &raw
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		respondError(w, http.StatusBadRequest, err)
	case errors.Is(err, types.ErrNotFound):
		respondError(w, http.StatusNotFound, err)
	case errors.Is(err, types.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, err)
	case errors.Is(err, billing.ErrTransactionConflict):
		s.log.Warn("payment link conflict", "request_id", middleware.GetReqID(r.Context()), "error", err)
		respondError(w, http.StatusBadGateway, errors.New("payment link conflict, try again"))
	case errors.Is(err, lava.ErrGateway):
		s.log.Error("payment gateway error", "request_id", middleware.GetReqID(r.Context()), "error", err)
		respondError(w, http.StatusBadGateway, errors.New("payment provider is unavailable"))
	default:
		s.log.Error("request failed", "request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}
