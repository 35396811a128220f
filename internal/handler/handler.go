package handler

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"msgboard/internal/config"
	"msgboard/internal/model"
	"msgboard/internal/observability"
	"msgboard/internal/store"
)

// broadcastBuffer lets PUT requests hand off events without waiting on slow clients.
const broadcastBuffer = 100

// Handler holds application dependencies
type Handler struct {
	Store     store.MessageStore
	Config    config.Config
	Logger    *zap.Logger
	Validate  *validator.Validate
	Clients   map[*websocket.Conn]bool
	ClientMu  sync.RWMutex
	Broadcast chan model.CreatedEventMessage

	// WriteTimeout is the per-client deadline for one feed event.
	WriteTimeout time.Duration
}

// New creates a new Handler with the given dependencies
func New(s store.MessageStore, cfg config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		Store:     s,
		Config:    cfg,
		Logger:    logger.Named("handler"),
		Validate:  validator.New(),
		Clients:   make(map[*websocket.Conn]bool),
		Broadcast: make(chan model.CreatedEventMessage, broadcastBuffer),

		WriteTimeout: defaultWriteTimeout,
	}
}

// SetupRouter configures and returns the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(observability.MetricsMiddleware)

	api := r.PathPrefix("/api").Subrouter()

	// REST API
	api.HandleFunc("/messages/", h.GetMessages).Methods(http.MethodGet)
	api.HandleFunc("/message/{id}", h.GetMessage).Methods(http.MethodGet)
	api.HandleFunc("/message/", h.GetMessage).Methods(http.MethodGet)
	api.HandleFunc("/message/", h.CreateMessage).Methods(http.MethodPut)

	// WebSocket
	api.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health/live", observability.HealthLiveHandler).Methods(http.MethodGet)

	return r
}

// HTTPHandler wraps router with the CORS layers. Preflight requests are
// answered by rs/cors against ALLOWED_ORIGINS; every other response under
// /api/ carries Access-Control-Allow-Origin: *.
func (h *Handler) HTTPHandler(router http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: h.Config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	})
	return c.Handler(allowAllOrigins(router))
}

func allowAllOrigins(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		next.ServeHTTP(w, r)
	})
}
