package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"

	"a3p/internal/charts"
	"a3p/internal/log"
	"a3p/internal/metrics"
	"a3p/internal/middleware/ratelimit"
	"a3p/internal/middleware/security"
	"a3p/internal/middleware/trace"
	"a3p/internal/services"
	appweb "a3p/web"
)

// DefaultCeilingHorizonDays bounds coverage ceilings to ten years ahead.
const DefaultCeilingHorizonDays = 3650

// Options configures a Server. Zero values pick sensible defaults.
type Options struct {
	Charts   *charts.Renderer
	Metrics  *metrics.Metrics
	Logger   *log.Logger
	Location *time.Location
	// Ready reports whether the record source can be read. Nil means the
	// dashboard is ready as soon as it has a snapshot.
	Ready func(ctx context.Context) error
	// ReloadPerMinute caps POST /admin/reload per client.
	ReloadPerMinute int
	// CeilingHorizonDays is how far past today a coverage ceiling may go.
	CeilingHorizonDays int
	TrustedProxies  []string
}

// Server serves the dashboard page, its partials and the JSON API.
type Server struct {
	http.Server
	templates *template.Template
	dashboard *services.DashboardService
	charts    *charts.Renderer
	metrics   *metrics.Metrics
	logger    *log.Logger
	location  *time.Location
	ready     func(ctx context.Context) error
	started   time.Time
	horizon   int

	limiter  *ratelimit.Limiter
	detector *security.Detector
	trace    *trace.Middleware

	shutdownOnce sync.Once
}

// recoveryLogger adapts the structured logger to handlers.RecoveryHandlerLogger.
type recoveryLogger struct{ logger *log.Logger }

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("Panic recovered", "panic", fmt.Sprint(v...))
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, svc *services.DashboardService, o Options) *Server {
	if o.Logger == nil {
		o.Logger = log.New(log.DefaultConfig())
	}
	if o.Charts == nil {
		o.Charts = charts.New(charts.Options{})
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.ReloadPerMinute <= 0 {
		o.ReloadPerMinute = 6
	}
	if o.CeilingHorizonDays <= 0 {
		o.CeilingHorizonDays = DefaultCeilingHorizonDays
	}

	logger := o.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
		},
		dashboard: svc,
		charts:    o.Charts,
		metrics:   o.Metrics,
		logger:    logger,
		location:  o.Location,
		ready:     o.Ready,
		started:   time.Now(),
		horizon:   o.CeilingHorizonDays,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			Requests: o.ReloadPerMinute,
			Window:   time.Minute,
		}),
		detector: security.NewDetector(o.Logger),
	}
	for _, cidr := range o.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}
	s.trace = trace.NewMiddleware(o.Logger, s.detector.ExtractClientIP)

	t, err := template.New("").Funcs(templateFuncs(o.Location)).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", "error", err, log.FieldComponent, log.ComponentTemplate)
	}
	s.templates = t

	mux := http.NewServeMux()
	route := func(pattern, name string, h http.Handler) {
		mux.Handle(pattern, s.metrics.WrapHandler(name, h))
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		route("/static/", "static", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	route("/", "index", http.HandlerFunc(s.handleIndex))
	route("/ui/panels", "panels", http.HandlerFunc(s.handlePanels))
	route("/api/dashboard", "api_dashboard", http.HandlerFunc(s.handleAPIDashboard))
	route("/api/coverage", "api_coverage", http.HandlerFunc(s.handleAPICoverage))
	route("/api/snapshot", "api_snapshot", http.HandlerFunc(s.handleAPISnapshot))
	route("/charts/coverage.png", "chart_png", http.HandlerFunc(s.handleCoveragePNG))
	route("/charts/page", "chart_page", http.HandlerFunc(s.handleChartsPage))
	route("/healthz", "healthz", security.NoStore(http.HandlerFunc(s.handleHealth)))
	route("/readyz", "readyz", security.NoStore(http.HandlerFunc(s.handleReady)))
	mux.Handle("/metrics", s.metrics.Handler())

	reload := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Reload rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldComponent, log.ComponentRateLimit)
		writeJSONError(w, http.StatusTooManyRequests, "Muitas recargas. Tente novamente em instantes.")
	})(http.HandlerFunc(s.handleReload))
	route("/admin/reload", "admin_reload", security.NoStore(handlers.MethodHandler{
		http.MethodPost: reload,
	}))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig(o.Charts.AssetsHost()))

	var h http.Handler = mux
	h = handlers.CompressHandler(h)
	h = headers.Middleware(h)
	h = s.detector.Middleware(h)
	h = log.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = log.Middleware(o.Logger)(h)
	h = s.trace.Middleware(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: logger}),
		handlers.PrintRecoveryStack(false),
	)(h)
	s.Handler = h

	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
