package mindscore

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/goccy/go-json"
	fiber "github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/mindscore/internal/sentinel"
)

// UserIDLocal is the fiber locals key an auth hook sets to the authenticated user id.
// When present it takes precedence over the userId sent by the client.
const UserIDLocal = "mindscore.userID"

// APIHTTPOption configures the API HTTP server.
type APIHTTPOption func(*APIHTTPServer)

// APIHTTPServer holds Fiber app and settings.
type APIHTTPServer struct {
	addr         string
	app          *fiber.App
	readTimeout  time.Duration
	writeTimeout time.Duration
	authFunc     func(fiber.Ctx) error
	metrics      http.Handler
	logger       log.Interface
	ln           net.Listener
	started      bool
}

// WithAPIAuth sets an auth function run before every /api route (return error to block).
// It may store the resolved user id under UserIDLocal.
func WithAPIAuth(fn func(fiber.Ctx) error) APIHTTPOption {
	return func(s *APIHTTPServer) { s.authFunc = fn }
}

// WithAPIReadTimeout sets read timeout.
func WithAPIReadTimeout(d time.Duration) APIHTTPOption {
	return func(s *APIHTTPServer) { s.readTimeout = d }
}

// WithAPIWriteTimeout sets write timeout.
func WithAPIWriteTimeout(d time.Duration) APIHTTPOption {
	return func(s *APIHTTPServer) { s.writeTimeout = d }
}

// WithAPIMetrics exposes handler on GET /metrics, typically promhttp.Handler().
func WithAPIMetrics(handler http.Handler) APIHTTPOption {
	return func(s *APIHTTPServer) { s.metrics = handler }
}

// WithAPILogger sets the logger used for server side failures.
func WithAPILogger(logger log.Interface) APIHTTPOption {
	return func(s *APIHTTPServer) { s.logger = logger }
}

const (
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// NewAPIHTTPServer builds an HTTP server holder (lazy start).
func NewAPIHTTPServer(addr string, opts ...APIHTTPOption) *APIHTTPServer {
	srv := &APIHTTPServer{
		addr:         addr,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		logger:       log.Log,
	}
	for _, opt := range opts { // apply options
		opt(srv)
	}

	srv.app = fiber.New(fiber.Config{
		ReadTimeout:  srv.readTimeout,
		WriteTimeout: srv.writeTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return srv
}

// Start mounts the routes on svc and launches the listener (idempotent).
func (s *APIHTTPServer) Start(ctx context.Context, svc Service) error {
	if s.started { // idempotent
		return nil
	}

	s.mountRoutes(ctx, svc)

	lc := net.ListenConfig{}

	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return ewrap.Wrap(err, "api listen")
	}

	s.ln = ln

	go func() {
		serveErr := s.app.Listener(ln)
		if serveErr != nil {
			s.logger.WithError(serveErr).Error("api server stopped")
		}
	}()

	s.started = true

	return nil
}

// Address returns the bound address (useful when passing ":0" for ephemeral port). Empty if not started yet.
func (s *APIHTTPServer) Address() string {
	if s.ln == nil {
		return ""
	}

	return s.ln.Addr().String()
}

// Shutdown stops the server.
func (s *APIHTTPServer) Shutdown(ctx context.Context) error {
	if !s.started {
		return nil
	}

	ch := make(chan error, 1)

	go func() {
		ch <- s.app.Shutdown()
	}()

	select {
	case <-ctx.Done():
		return sentinel.ErrAPIHTTPShutdownTimeout
	case err := <-ch:
		return err
	}
}

// mountRoutes registers endpoints onto the Fiber app.
func (s *APIHTTPServer) mountRoutes(ctx context.Context, svc Service) {
	useAuth := s.wrapAuth

	s.app.Get("/health", func(fiberCtx fiber.Ctx) error { return fiberCtx.SendString("ok") })

	if s.metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics))
	}

	s.registerUser(ctx, useAuth, svc)
	s.registerTests(ctx, useAuth, svc)
}

// wrapAuth returns an auth-wrapped handler if authFunc provided.
func (s *APIHTTPServer) wrapAuth(handler fiber.Handler) fiber.Handler { //nolint:ireturn
	if s.authFunc == nil {
		return handler
	}

	return func(fiberCtx fiber.Ctx) error {
		authErr := s.authFunc(fiberCtx)
		if authErr != nil {
			return authErr
		}

		return handler(fiberCtx)
	}
}

// userBody is the JSON body of the DELETE routes.
type userBody struct {
	UserID string `json:"userId"`
}

func (s *APIHTTPServer) registerUser(ctx context.Context, useAuth func(fiber.Handler) fiber.Handler, svc Service) {
	s.app.Get("/api/stats/overview", useAuth(func(fiberCtx fiber.Ctx) error {
		tests, err := svc.Overview(ctx, userID(fiberCtx, fiberCtx.Query("userId")))
		if err != nil {
			return s.fail(fiberCtx, err)
		}

		return fiberCtx.JSON(fiber.Map{"tests": tests})
	}))
	s.app.Get("/api/user/all-game-data", useAuth(func(fiberCtx fiber.Ctx) error {
		grouped, err := svc.AllGameData(ctx, userID(fiberCtx, fiberCtx.Query("userId")))
		if err != nil {
			return s.fail(fiberCtx, err)
		}

		return fiberCtx.JSON(grouped)
	}))
	s.app.Delete("/api/user/performance", useAuth(func(fiberCtx fiber.Ctx) error {
		var body userBody

		err := decodeBody(fiberCtx, &body)
		if err != nil {
			return badRequest(fiberCtx, err)
		}

		deleted, err := svc.ResetUser(ctx, userID(fiberCtx, body.UserID))
		if err != nil {
			return s.fail(fiberCtx, err)
		}

		return fiberCtx.JSON(fiber.Map{"success": true, "deleted": deleted})
	}))
}

func (s *APIHTTPServer) registerTests(ctx context.Context, useAuth func(fiber.Handler) fiber.Handler, svc Service) {
	s.app.Get("/api/tests/:testType", useAuth(func(fiberCtx fiber.Ctx) error {
		items, err := svc.List(ctx,
			fiberCtx.Params("testType"),
			userID(fiberCtx, fiberCtx.Query("userId")),
			ParseScope(fiberCtx.Query("type")))
		if err != nil {
			return s.fail(fiberCtx, err)
		}

		return fiberCtx.JSON(items)
	}))
	s.app.Post("/api/tests/:testType", useAuth(func(fiberCtx fiber.Ctx) error {
		var req RecordRequest

		err := decodeBody(fiberCtx, &req)
		if err != nil {
			return badRequest(fiberCtx, err)
		}

		req.TestType = fiberCtx.Params("testType")
		req.UserID = userID(fiberCtx, req.UserID)

		res, err := svc.Record(ctx, req)
		if err != nil {
			return s.fail(fiberCtx, err)
		}

		return fiberCtx.JSON(fiber.Map{"success": true, "id": res.ID})
	}))
	s.app.Delete("/api/tests/:testType", useAuth(func(fiberCtx fiber.Ctx) error {
		var body userBody

		err := decodeBody(fiberCtx, &body)
		if err != nil {
			return badRequest(fiberCtx, err)
		}

		deleted, err := svc.DeleteResults(ctx, fiberCtx.Params("testType"), userID(fiberCtx, body.UserID))
		if err != nil {
			return s.fail(fiberCtx, err)
		}

		return fiberCtx.JSON(fiber.Map{"success": true, "deleted": deleted})
	}))
}

// fail maps service errors to status codes. Only server side failures are logged.
func (s *APIHTTPServer) fail(fiberCtx fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrUnknownTestType):
		return fiberCtx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, sentinel.ErrUserIDRequired),
		errors.Is(err, sentinel.ErrInvalidScore),
		errors.Is(err, sentinel.ErrInvalidAccuracy),
		errors.Is(err, sentinel.ErrInvalidResult):
		return badRequest(fiberCtx, err)
	default:
		s.logger.WithError(err).WithField("path", fiberCtx.Path()).Error("request failed")

		return fiberCtx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "server error"})
	}
}

func badRequest(fiberCtx fiber.Ctx, err error) error {
	return fiberCtx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(fiberCtx fiber.Ctx, v any) error {
	body := fiberCtx.Body()
	if len(body) == 0 {
		return nil
	}

	err := json.Unmarshal(body, v)
	if err != nil {
		return ewrap.Wrap(err, "invalid body")
	}

	return nil
}

// userID prefers the id resolved by the auth hook over the one sent by the client.
func userID(fiberCtx fiber.Ctx, sent string) string {
	if resolved, ok := fiberCtx.Locals(UserIDLocal).(string); ok && resolved != "" {
		return resolved
	}

	return sent
}
