package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"barberq/internal/config"
	"barberq/internal/domain"
	"barberq/internal/events"
	"barberq/internal/messaging"
	"barberq/internal/metrics"
	"barberq/internal/schedule"

	"github.com/rs/zerolog"
)

// Subscriber hands out change-stream handles for the SSE endpoint.
type Subscriber interface {
	Subscribe(ctx context.Context, barberID string) (*events.Subscription, error)
}

// Exporter produces the day's Excel workbook on demand.
type Exporter interface {
	ExportDay(ctx context.Context, day time.Time) (string, error)
}

// HTTPServer exposes the queue over a JSON API for the front-desk and
// kiosk clients.
type HTTPServer struct {
	cfg             config.APIConfig
	queue           domain.QueueService
	catalog         domain.CatalogService
	slots           SlotProvider
	exporter        Exporter
	subscriber      Subscriber
	whatsapp        *messaging.WhatsApp
	waitPerCustomer int
	server          *http.Server
	auth            *HTTPAuth
	log             zerolog.Logger
}

// SlotProvider builds the day grid; satisfied by the queue service.
type SlotProvider interface {
	Slots(ctx context.Context, barberID string, day time.Time, excludeID string) ([]schedule.Slot, error)
}

func NewHTTPServer(
	cfg config.APIConfig,
	queue domain.QueueService,
	catalog domain.CatalogService,
	slots SlotProvider,
	exporter Exporter,
	subscriber Subscriber,
	whatsapp *messaging.WhatsApp,
	waitPerCustomer int,
	logger *zerolog.Logger,
) *HTTPServer {
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "http").Logger()
	}

	srv := &HTTPServer{
		cfg:             cfg,
		queue:           queue,
		catalog:         catalog,
		slots:           slots,
		exporter:        exporter,
		subscriber:      subscriber,
		whatsapp:        whatsapp,
		waitPerCustomer: waitPerCustomer,
		log:             log,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/slots", srv.handleSlots)
	mux.HandleFunc("/api/v1/queue/", srv.handleQueue)
	mux.HandleFunc("/api/v1/customers", srv.handleCustomers)
	mux.HandleFunc("/api/v1/customers/", srv.handleCustomer)
	mux.HandleFunc("/api/v1/barbers", srv.handleBarbers)
	mux.HandleFunc("/api/v1/services", srv.handleServices)
	mux.HandleFunc("/api/v1/export", srv.handleExport)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the configured root handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		metrics.IncHTTP(r.URL.Path)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps the recorder usable for the SSE endpoint.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
