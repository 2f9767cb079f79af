// Package webrouter is a request-dispatch layer for net/http. It maps an exact
// method+path pair to a render strategy, normalizes the request (cookies, body
// fields, uploaded files), runs the handler, and finalizes the response the same way
// for every route: baseline headers, Set-Cookie emission, optional gzip, one write.
//
// Four strategies are available: plain text, JSON, file download and server-side
// templates.
//
// Example usage:
//
//	router, err := webrouter.NewRouter(webrouter.Options{})
//	router.AddTemplateRoute([]string{"GET"}, []string{"/", "/index.html"}, "templates", "index",
//	    func(req *webrouter.RouteRequest) (any, error) { return map[string]string{"name": "Roberto"}, nil })
//	router.AddJSONRoute([]string{"get"}, []string{"/testjson"},
//	    func(req *webrouter.RouteRequest) (any, *webrouter.ResponseMeta, error) { return map[string]int{"abc": 123}, nil, nil })
//	router.Listen(46728, "127.0.0.1", 0)
package webrouter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	exchange "github.com/Sembiance/webrouter/webrouter-exchange"
)

const (
	defaultMaxFieldsSize = 50 * 1024 * 1024
	defaultMaxFileSize   = 200 * 1024 * 1024
)

// Options configures a Router. The zero value is usable.
//
// Fields:
//   - UploadDir: where uploaded files are stored; a new temp dir when empty. Created if missing.
//   - MaxFieldsSize: ceiling on the summed size of non-file body fields (default 50 MiB)
//   - MaxFileSize: ceiling on each uploaded file (default 200 MiB)
//   - StripExtensions: store uploads without their original file extension
//   - TemplateExtension: file extension of templates (default ".html")
//   - DisableCache: re-parse templates on every render
//   - Templates: renderer for template routes; an HTMLTemplates when nil
//   - BodyDecoder: body decoder for POST/PUT; a FormDecoder when nil
//   - Logger: structured logger; text on stdout at Info when nil
//   - LogRequestsLevel: 0 = errors only, 1 = one line per request, 2 = detailed
//     (decoded requests and unrouted requests too); all logged at Info
//   - SilentMode: when true, Listen does not print the route table
//   - Database: when set, a pgx pool handed to handlers through RouteRequest.Database
//   - CookieSecret: 32-byte key enabling RouteRequest.SealCookie/SealedCookie
//   - Metrics: when set, request counters and latencies are registered here
type Options struct {
	UploadDir         string
	MaxFieldsSize     int64
	MaxFileSize       int64
	StripExtensions   bool
	TemplateExtension string
	DisableCache      bool
	Templates         TemplateRenderer
	BodyDecoder       BodyDecoder
	Logger            *slog.Logger
	LogRequestsLevel  int
	SilentMode        bool
	Database          *DatabaseConfiguration
	CookieSecret      []byte
	Metrics           prometheus.Registerer
}

// Router owns a RouteTable and runs every request through the same pipeline:
// method check, route lookup, body decoding, cookie parsing, rendering, header
// assembly, compression and a single write. It implements http.Handler.
type Router struct {
	Routes           *RouteTable
	Templates        TemplateRenderer
	BodyDecoder      BodyDecoder
	UploadDir        string
	Logger           *slog.Logger
	LogRequestsLevel int
	SilentMode       bool
	Database         *pgxpool.Pool
	Context          context.Context

	cancel  context.CancelFunc
	sealer  *exchange.Sealer
	metrics *routerMetrics
	now     func() time.Time
}

// NewRouter creates a Router that shuts down when the process receives an interrupt.
func NewRouter(opts Options) (*Router, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	a, err := NewInlineRouter(ctx, opts)
	if err != nil {
		stop()
		return nil, err
	}
	cancel := a.cancel
	a.cancel = func() {
		cancel()
		stop()
	}
	return a, nil
}

// NewInlineRouter creates a Router bound to ctx: Listen returns once ctx is done or
// Close is called, and ctx is the parent of every RouteRequest.Context.
func NewInlineRouter(ctx context.Context, opts Options) (*Router, error) {
	ctx, cancel := context.WithCancel(ctx)
	a, err := newRouter(ctx, opts)
	if err != nil {
		cancel()
		return nil, err
	}
	a.cancel = cancel
	return a, nil
}

func newRouter(ctx context.Context, opts Options) (*Router, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	uploadDir := opts.UploadDir
	if uploadDir == "" {
		dir, err := os.MkdirTemp("", "webrouter-uploads-")
		if err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
		uploadDir = dir
	} else if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	templates := opts.Templates
	if templates == nil {
		templates = NewHTMLTemplates(opts.TemplateExtension, opts.DisableCache)
	}

	decoder := opts.BodyDecoder
	if decoder == nil {
		maxFields := opts.MaxFieldsSize
		if maxFields <= 0 {
			maxFields = defaultMaxFieldsSize
		}
		maxFile := opts.MaxFileSize
		if maxFile <= 0 {
			maxFile = defaultMaxFileSize
		}
		decoder = &FormDecoder{
			UploadDir:      uploadDir,
			MaxFieldsSize:  maxFields,
			MaxFileSize:    maxFile,
			KeepExtensions: !opts.StripExtensions,
		}
	}

	a := &Router{
		Routes:           NewRouteTable(),
		Templates:        templates,
		BodyDecoder:      decoder,
		UploadDir:        uploadDir,
		Logger:           logger,
		LogRequestsLevel: opts.LogRequestsLevel,
		SilentMode:       opts.SilentMode,
		Context:          ctx,
		now:              time.Now,
	}

	if len(opts.CookieSecret) > 0 {
		sealer, err := exchange.NewSealer(opts.CookieSecret)
		if err != nil {
			return nil, err
		}
		a.sealer = sealer
	}

	if opts.Metrics != nil {
		metrics, err := newRouterMetrics(opts.Metrics)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		a.metrics = metrics
	}

	if opts.Database != nil {
		pool, err := openDatabase(ctx, *opts.Database)
		if err != nil {
			return nil, err
		}
		a.Database = pool
	}

	return a, nil
}

// AddRoute registers route for every combination of methods and paths. Methods other
// than GET, POST and PUT are ignored; a later registration of the same pair wins.
func (a *Router) AddRoute(methods []string, paths []string, route RenderStrategy) {
	a.Routes.Register(methods, paths, route)
}

// AddTextRoute registers a handler whose string result is sent as text/plain.
func (a *Router) AddTextRoute(methods []string, paths []string, handler TextHandlerFn) {
	a.AddRoute(methods, paths, NewTextRoute(handler))
}

// AddJSONRoute registers a handler whose result is sent JSON-encoded.
func (a *Router) AddJSONRoute(methods []string, paths []string, handler JSONHandlerFn) {
	a.AddRoute(methods, paths, NewJSONRoute(handler))
}

// AddFileRoute registers a handler naming a file to send as an attachment.
func (a *Router) AddFileRoute(methods []string, paths []string, handler FileHandlerFn) {
	a.AddRoute(methods, paths, NewFileRoute(handler))
}

// AddTemplateRoute registers the template name under dir. data is either a static
// value or a TemplateDataFn called per request.
func (a *Router) AddTemplateRoute(methods []string, paths []string, dir string, name string, data any) {
	a.AddRoute(methods, paths, NewTemplateRoute(a.Templates, dir, name, data))
}

// AddRouteGroup registers all routes from a RouteGroup under a common prefix.
func (a *Router) AddRouteGroup(prefix string, rg *RouteGroup) {
	rg.mount(a.Routes, prefix)
}

// ServeHTTP runs the request pipeline. The response is assembled completely before
// anything is written, so a failure at any stage yields exactly one status line.
func (a *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := a.now()
	response := a.dispatch(r)
	if err := response.Write(w); err != nil && a.LogRequestsLevel > 1 {
		a.Logger.Info("response write failed", "method", r.Method, "path", r.URL.EscapedPath(), "error", err)
	}
	a.metrics.observe(metricsMethod(r.Method), response.StatusCode, started)
}

func (a *Router) dispatch(r *http.Request) *HttpResponse {
	method := MethodFromString(r.Method)
	if !a.Routes.Supports(string(method)) {
		a.logRouting(r, ErrMethodNotSupported)
		return NotImplementedResponse(r.Method)
	}

	route, found := a.Routes.Resolve(string(method), r.URL.EscapedPath())
	if !found {
		a.logRouting(r, ErrRouteNotFound)
		return NotFoundResponse()
	}

	request := newHttpRequest(r, method)
	logger := a.Logger.With("request_id", request.ID)
	if a.LogRequestsLevel > 0 {
		logger.Info("request", "method", request.Method.String(), "path", request.Path, "remote", request.IpAddress)
	}

	response, err := a.render(r, request, route, logger)
	if err != nil {
		pe := asPipelineError(err, KindHandler)
		logger.Error("request failed",
			"kind", string(pe.Kind),
			"method", request.Method.String(),
			"path", request.Path,
			"error", pe.Err,
		)
		return ErrorResponse(pe)
	}
	return response
}

// render covers the pipeline stages that can fail: body decoding, rendering, header
// assembly and compression.
func (a *Router) render(r *http.Request, request *HttpRequest, route RenderStrategy, logger *slog.Logger) (*HttpResponse, error) {
	if request.Method.CarriesBody() {
		fields, files, err := a.BodyDecoder.Decode(r)
		if err != nil {
			return nil, newPipelineError(KindBodyDecode, err)
		}
		if fields != nil {
			request.Fields = fields
		}
		if files != nil {
			request.Files = files
		}
	}

	request.Cookies = ParseCookieHeader(r.Header.Get("Cookie"))

	if a.LogRequestsLevel > 1 {
		logger.Info("request decoded", "request", request)
	}

	result, err := a.invoke(route, &RouteRequest{
		Request:  request,
		Database: a.Database,
		Context:  r.Context(),
		Logger:   logger,
		sealer:   a.sealer,
	})
	if err != nil {
		return nil, err
	}

	response := baselineResponse(a.now())
	contentType := route.ContentType()
	if result.ContentType != "" {
		contentType = result.ContentType
	}
	response.SetHeader("Content-Type", contentType)

	if meta := result.Meta; meta != nil {
		for _, c := range meta.Cookies {
			serialized, err := SerializeCookie(c)
			if err != nil {
				return nil, newPipelineError(KindSerialization, err)
			}
			response.AddHeader("Set-Cookie", serialized)
		}
		for key, value := range meta.Headers {
			response.SetHeader(key, value)
		}
	}

	payload := result.Payload
	if len(payload) > 0 && AcceptsGzip(r.Header.Get("Accept-Encoding")) {
		compressed, err := Gzip(payload)
		if err != nil {
			return nil, newPipelineError(KindCompression, err)
		}
		payload = compressed
		response.SetHeader("Content-Encoding", "gzip")
		a.metrics.observeCompressed()
	}

	response.Body = payload
	return response, nil
}

// invoke calls the strategy once, turning a handler panic into a HandlerError.
func (a *Router) invoke(route RenderStrategy, req *RouteRequest) (result *RenderResult, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = nil
			err = newPipelineError(KindHandler, panicError(recovered))
		}
	}()
	result, err = route.Render(req)
	if err == nil && result == nil {
		err = newPipelineError(KindHandler, errors.New("handler returned no result"))
	}
	return result, err
}

func (a *Router) logRouting(r *http.Request, reason error) {
	if a.LogRequestsLevel > 1 {
		a.Logger.Info("request not routed",
			"kind", string(KindRouting),
			"method", r.Method,
			"path", r.URL.EscapedPath(),
			"reason", reason.Error(),
		)
	}
}

// metricsMethod keeps the method label bounded.
func metricsMethod(raw string) string {
	method := MethodFromString(raw)
	for _, m := range SupportedMethods {
		if m == method {
			return string(m)
		}
	}
	return "OTHER"
}

// Listen serves HTTP on host:port until the router's context is done, then shuts the
// server down, waiting for in-flight requests. A positive idleTimeout closes
// keep-alive connections left idle that long.
//
// Unless SilentMode is set, the route table is printed before serving.
func (a *Router) Listen(port int, host string, idleTimeout time.Duration) error {
	listener, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	return a.Serve(listener, idleTimeout)
}

// Serve is Listen on an existing listener. The listener is closed on return.
func (a *Router) Serve(listener net.Listener, idleTimeout time.Duration) error {
	if !a.SilentMode {
		fmt.Printf("Starting server on %v.\n\nRegistered routes:\n", listener.Addr())
		a.Routes.PrintTree(os.Stdout)
	}

	server := &http.Server{
		Handler:     a,
		IdleTimeout: idleTimeout,
		BaseContext: func(net.Listener) context.Context { return a.Context },
		ErrorLog:    slog.NewLogLogger(a.Logger.Handler(), slog.LevelWarn),
	}

	served := make(chan error, 1)
	go func() {
		served <- server.Serve(listener)
	}()

	select {
	case err := <-served:
		a.closeDatabase()
		return err
	case <-a.Context.Done():
		a.Logger.Info("Stopping webrouter server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		<-served
		a.closeDatabase()
		return err
	}
}

// Close ends the router's context, which makes a running Listen shut down.
func (a *Router) Close() {
	a.cancel()
}

func (a *Router) closeDatabase() {
	if a.Database != nil {
		a.Database.Close()
	}
}
