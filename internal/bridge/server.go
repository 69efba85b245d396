// Package bridge exposes a session to the JavaScript application layer:
// an HTTP call surface grouped by namespace plus a websocket event stream.
package bridge

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/semaphore"

	"github.com/user/chatbridge/internal/events"
	"github.com/user/chatbridge/internal/session"
)

const (
	defaultMaxStreams = 16
	defaultStreamBuf  = 256
)

// Server routes bridge calls to one session.
type Server struct {
	sess    *session.Session
	bus     *events.Bus
	router  chi.Router
	streams *semaphore.Weighted
	origins []string
	log     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS and websocket origin patterns. The
// default allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithMaxStreams bounds concurrent event-stream clients.
func WithMaxStreams(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.streams = semaphore.NewWeighted(int64(n))
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

func NewServer(sess *session.Session, bus *events.Bus, opts ...Option) *Server {
	s := &Server{
		sess:    sess,
		bus:     bus,
		streams: semaphore.NewWeighted(defaultMaxStreams),
		origins: []string{"*"},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/events", s.handleEvents)

	r.Route("/connection", func(r chi.Router) {
		r.Post("/prepare", s.handlePrepare)
		r.Post("/prepare-with-urls", s.handlePrepareWithURLs)
		r.Post("/connect", s.handleConnect)
		r.Post("/prepare-and-connect", s.handlePrepareAndConnect)
		r.Post("/disconnect", s.handleDisconnect)
		r.Post("/sign-out", s.handleSignOut)
		r.Get("/mode", s.handleMode)
		r.Get("/state", s.handleState)
		r.Get("/is-connected", s.handleIsConnected)
		r.Post("/triggers/{id}", s.handleExecuteTrigger)
		r.Get("/channel-configuration", s.handleChannelConfiguration)
		r.Post("/channel-configuration-by-url", s.handleChannelConfigurationByURL)
	})

	r.Route("/customer", func(r chi.Router) {
		r.Put("/name", s.handleCustomerName)
		r.Put("/identity", s.handleCustomerIdentity)
		r.Delete("/identity", s.handleClearCustomerIdentity)
		r.Put("/device-token", s.handleDeviceToken)
		r.Put("/authorization-code", s.handleAuthorizationCode)
		r.Put("/code-verifier", s.handleCodeVerifier)
		r.Get("/visitor-id", s.handleVisitorID)
	})

	r.Route("/threads", func(r chi.Router) {
		r.Get("/", s.handleThreads)
		r.Post("/", s.handleCreateThread)
		r.Post("/load", s.handleLoadThreads)
		r.Get("/pre-chat-survey", s.handlePreChatSurvey)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleLoadThread)
			r.Post("/messages", s.handleSendMessage)
			r.Post("/load-more", s.handleLoadMore)
			r.Post("/mark-read", s.handleMarkRead)
			r.Put("/name", s.handleUpdateName)
			r.Post("/archive", s.handleArchive)
			r.Post("/end-contact", s.handleEndContact)
			r.Post("/typing", s.handleTyping)
			r.Get("/custom-fields", s.handleThreadCustomFields)
			r.Put("/custom-fields", s.handleUpdateThreadCustomFields)
			r.Post("/attachments/url", s.handleAttachmentURL)
			r.Post("/attachments/base64", s.handleAttachmentBase64)
		})
	})

	r.Route("/analytics", func(r chi.Router) {
		r.Post("/view-page", s.handleViewPage)
		r.Post("/view-page-ended", s.handleViewPageEnded)
		r.Post("/chat-window-open", s.handleChatWindowOpen)
		r.Post("/conversion", s.handleConversion)
	})

	r.Route("/custom-fields", func(r chi.Router) {
		r.Get("/customer", s.handleCustomerCustomFields)
		r.Put("/customer", s.handleSetCustomerCustomFields)
		r.Get("/thread/{id}", s.handleThreadCustomFields)
		r.Put("/thread/{id}", s.handleUpdateThreadCustomFields)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"session_id":  string(s.sess.ID),
		"state":       s.sess.ChatState(),
		"subscribers": s.bus.Len(),
	})
}
