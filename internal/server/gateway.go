package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/teemow/szymon/internal/calendar"
	"github.com/teemow/szymon/internal/google"
	"github.com/teemow/szymon/internal/instrumentation"
	"github.com/teemow/szymon/internal/logging"
	"github.com/teemow/szymon/internal/tasks"
)

// Authenticator is the part of google.SessionManager the gateway uses.
type Authenticator interface {
	AuthorizationURL() (string, string, error)
	ExchangeCode(ctx context.Context, code string) (*google.Credential, error)
	IsAuthenticated() bool
}

// TaskService is implemented by tasks.Client.
type TaskService interface {
	ListTaskLists(ctx context.Context) ([]tasks.TaskList, error)
	ListTasks(ctx context.Context, listID string, opts tasks.ListOptions) ([]tasks.Task, error)
	GetTask(ctx context.Context, listID, taskID string) (*tasks.Task, error)
	CreateTask(ctx context.Context, listID string, draft tasks.TaskDraft) (*tasks.Task, error)
	UpdateTask(ctx context.Context, listID, taskID string, patch tasks.TaskPatch) (*tasks.Task, error)
	DeleteTask(ctx context.Context, listID, taskID string) error
	CompleteTask(ctx context.Context, listID, taskID string) (*tasks.Task, error)
	UncompleteTask(ctx context.Context, listID, taskID string) (*tasks.Task, error)
}

// CalendarService is implemented by calendar.Client.
type CalendarService interface {
	ListCalendars(ctx context.Context) ([]calendar.Calendar, error)
	ListEvents(ctx context.Context, calID string, q calendar.EventQuery) ([]calendar.Event, error)
	GetEvent(ctx context.Context, calID, eventID string) (*calendar.Event, error)
	CreateEvent(ctx context.Context, calID string, draft calendar.EventDraft) (*calendar.Event, error)
	UpdateEvent(ctx context.Context, calID, eventID string, patch calendar.EventPatch) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, calID, eventID string) error
	QuickAdd(ctx context.Context, calID, text string) (*calendar.Event, error)
}

// Options configures a Gateway.
type Options struct {
	// Auth, Tasks and Calendar are nil when no Google client is configured.
	// Every surface endpoint then answers 503.
	Auth     Authenticator
	Tasks    TaskService
	Calendar CalendarService

	// FrontendURL receives the browser after sign-in. Empty serves a page
	// that closes itself.
	FrontendURL string
	// FrontendDir is a built single-page app. Empty disables static hosting.
	FrontendDir string
	// FaviconFile overrides the embedded favicon.
	FaviconFile string

	Health  *HealthChecker
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger

	// StateTTL defaults to DefaultStateTTL.
	StateTTL time.Duration
	// AuthRate and AuthBurst limit /auth requests per client IP.
	AuthRate  float64
	AuthBurst int

	// Now is the clock for state expiry. Defaults to time.Now.
	Now func() time.Time
}

// Gateway is the HTTP face of szymon: a REST API over Google Tasks and
// Calendar plus hosting for the frontend bundle.
type Gateway struct {
	auth     Authenticator
	tasks    TaskService
	calendar CalendarService

	frontendURL string
	static      *staticSite

	health  *HealthChecker
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
	logger  *slog.Logger

	states      *stateStore
	authLimiter *clientLimiter

	router *mux.Router
}

// New builds a Gateway and its routes.
func New(opts Options) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	health := opts.Health
	if health == nil {
		health = NewHealthChecker()
	}
	authRate, authBurst := opts.AuthRate, opts.AuthBurst
	if authRate <= 0 {
		authRate = DefaultAuthRate
	}
	if authBurst <= 0 {
		authBurst = DefaultAuthBurst
	}

	g := &Gateway{
		auth:        opts.Auth,
		tasks:       opts.Tasks,
		calendar:    opts.Calendar,
		frontendURL: opts.FrontendURL,
		static:      newStaticSite(opts.FrontendDir, opts.FaviconFile),
		health:      health,
		metrics:     opts.Metrics,
		audit:       opts.Audit,
		logger:      logger.With(slog.String("component", "gateway")),
		states:      newStateStore(opts.StateTTL, opts.Now, opts.Metrics),
		authLimiter: newClientLimiter(authRate, authBurst),
	}
	g.router = g.routes()
	return g
}

// Handler returns the router wrapped in the middleware chain, outermost
// first: panic recovery, request ID, access log and metrics, tracing,
// security headers, JSON content type.
func (g *Gateway) Handler() http.Handler {
	var h http.Handler = g.router
	h = jsonContentType(h)
	h = securityHeaders(h)
	h = tracing(h)
	h = g.accessLog(h)
	h = requestID(h)
	h = g.recoverPanics(h)
	return h
}

func (g *Gateway) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(markRoute)

	r.HandleFunc("/health", g.handleHealth).Methods(http.MethodGet)
	r.Handle("/healthz", g.health.LivenessHandler()).Methods(http.MethodGet)
	r.Handle("/readyz", g.health.ReadinessHandler()).Methods(http.MethodGet)
	r.HandleFunc("/favicon.ico", g.static.serveFavicon).Methods(http.MethodGet, http.MethodHead)

	for _, surface := range []string{surfaceTasks, surfaceCalendar} {
		auth := r.PathPrefix("/api/" + surface + "/auth").Subrouter()
		auth.Use(g.authLimiter.rateLimit)
		auth.HandleFunc("/status", g.handleAuthStatus).Methods(http.MethodGet)
		auth.HandleFunc("/login", g.handleLogin(surface)).Methods(http.MethodGet)
		auth.HandleFunc("/callback", g.handleCallback(surface)).Methods(http.MethodGet)
	}

	t := r.PathPrefix("/api/tasks").Subrouter()
	t.HandleFunc("/lists", g.handleListTaskLists).Methods(http.MethodGet)
	t.HandleFunc("", g.handleListTasks).Methods(http.MethodGet)
	t.HandleFunc("", g.handleCreateTask).Methods(http.MethodPost)
	t.HandleFunc("/{task_id}", g.handleGetTask).Methods(http.MethodGet)
	t.HandleFunc("/{task_id}", g.handleUpdateTask).Methods(http.MethodPut)
	t.HandleFunc("/{task_id}", g.handleDeleteTask).Methods(http.MethodDelete)
	t.HandleFunc("/{task_id}/complete", g.handleCompleteTask).Methods(http.MethodPost)
	t.HandleFunc("/{task_id}/uncomplete", g.handleUncompleteTask).Methods(http.MethodPost)

	c := r.PathPrefix("/api/calendar").Subrouter()
	c.HandleFunc("/calendars", g.handleListCalendars).Methods(http.MethodGet)
	c.HandleFunc("/events", g.handleListEvents).Methods(http.MethodGet)
	c.HandleFunc("/events", g.handleCreateEvent).Methods(http.MethodPost)
	c.HandleFunc("/events/quick", g.handleQuickAdd).Methods(http.MethodPost)
	c.HandleFunc("/events/{event_id}", g.handleGetEvent).Methods(http.MethodGet)
	c.HandleFunc("/events/{event_id}", g.handleUpdateEvent).Methods(http.MethodPut)
	c.HandleFunc("/events/{event_id}", g.handleDeleteEvent).Methods(http.MethodDelete)

	r.PathPrefix("/").Handler(g.static).Methods(http.MethodGet, http.MethodHead)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// audited runs fn and writes an audit record for it.
func (g *Gateway) audited(r *http.Request, surface, action, containerID, resourceID string, fn func() error) error {
	event := instrumentation.NewAuditEvent(surface, action).
		WithTarget(containerID, resourceID).
		WithRequestID(logging.RequestID(r.Context())).
		WithSpanContext(r.Context())
	err := fn()
	g.audit.Log(event.Complete(err))
	return err
}
