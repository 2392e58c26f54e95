package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"payment-gateway/pkg/ledger"
	"payment-gateway/pkg/logging"
	"payment-gateway/pkg/mailer"
	"payment-gateway/pkg/payments"
	"payment-gateway/pkg/truemoney"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the payment API and the embedded browser UI.
type Server struct {
	service *payments.Service
	outbox  *mailer.Outbox
	server  *http.Server
	config  ServerConfig
	logger  *logging.Logger
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	// Address to listen on (e.g., ":3000")
	Address string

	// ReadTimeout for HTTP requests
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses
	WriteTimeout time.Duration

	// IdleTimeout for keep-alive connections
	IdleTimeout time.Duration
}

// DefaultServerConfig returns a default configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      ":3000",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates the API server. static is the embedded web UI; outbox
// may be nil when receipts are disabled.
func NewServer(service *payments.Service, outbox *mailer.Outbox, static fs.FS, config ServerConfig) *Server {
	s := &Server{
		service: service,
		outbox:  outbox,
		config:  config,
		logger:  logging.Global().Named("api"),
	}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware())
	r.Use(prometheusMiddleware())

	r.HandleFunc("/api/create-payment", s.handleCreatePayment).Methods(http.MethodPost)
	r.HandleFunc("/api/check-status", s.handleCheckStatus).Methods(http.MethodPost)
	r.HandleFunc("/api/redeem-angpao", s.handleRedeemAngpao).Methods(http.MethodPost)
	r.HandleFunc("/api/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if static != nil {
		r.PathPrefix("/").Handler(http.FileServer(http.FS(static)))
	}

	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("server listening", zap.String("address", s.config.Address))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount       string `json:"amount"`
		MerchantName string `json:"merchantName"`
		Email        string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "invalid request body",
		})
		return
	}

	result, err := s.service.CreatePayment(r.Context(), req.Amount, req.MerchantName, req.Email)
	if err != nil {
		s.logger.Error("create payment failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"transactionId":  result.TransactionID,
		"walletPayoutId": result.PayoutID,
	})
}

func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID string `json:"transactionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "invalid request body",
		})
		return
	}

	status, err := s.service.CheckStatus(r.Context(), req.TransactionID)
	if err != nil {
		if ledger.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false})
			return
		}
		s.logger.Error("status check failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"status": status})
}

func (s *Server) handleRedeemAngpao(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Link   string `json:"link"`
		Mobile string `json:"mobile"`
		Email  string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "invalid request body",
		})
		return
	}

	result, err := s.service.RedeemGiftLink(r.Context(), req.Link, req.Mobile, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, truemoney.ErrInvalidLink), errors.Is(err, truemoney.ErrNoVoucherCode):
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"message": "Invalid Link",
			})
		default:
			var declined *truemoney.DeclinedError
			if errors.As(err, &declined) {
				writeJSON(w, http.StatusOK, map[string]interface{}{
					"success": false,
					"message": declined.Message,
				})
				return
			}
			// The provider error is logged by the client; callers get a
			// generic message.
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": false,
				"message": "Link Invalid or Expired",
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"transactionId": result.TransactionID,
		"amount":        result.Amount,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.History(r.Context())
	if err != nil {
		s.logger.Error("history failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false})
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	}
	if s.outbox != nil {
		stats := s.outbox.Stats()
		response["receipts"] = map[string]interface{}{
			"enqueued": stats.Enqueued,
			"dropped":  stats.Dropped,
			"failed":   stats.Failed,
			"depth":    stats.Depth,
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// requestIDMiddleware tags each request with an X-Request-ID for log and
// trace correlation.
func requestIDMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r)
		})
	}
}

// HTTP metrics
var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
}

// prometheusMiddleware wraps HTTP handlers to collect metrics.
func prometheusMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			srw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(srw, r)

			duration := time.Since(start).Seconds()
			endpoint := getEndpoint(r)

			httpRequestsTotal.WithLabelValues(
				r.Method,
				endpoint,
				http.StatusText(srw.statusCode),
			).Inc()

			httpRequestDuration.WithLabelValues(r.Method, endpoint).Observe(duration)
		})
	}
}

// statusResponseWriter captures the status code.
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// getEndpoint returns a normalized endpoint path for metrics.
func getEndpoint(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return r.URL.Path
	}

	pathTemplate, err := route.GetPathTemplate()
	if err != nil {
		return r.URL.Path
	}

	return pathTemplate
}
