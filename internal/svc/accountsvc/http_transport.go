package accountsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	context_ "github.com/mkrupp/homecase-accounts/internal/infra/context"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
	http_ "github.com/mkrupp/homecase-accounts/internal/infra/transport/http"
)

const (
	// Version is reported by the status endpoint.
	Version = "1.0.0"

	// MessageServerRunning is the status endpoint message.
	MessageServerRunning = "server is running"
	// MessageMethodNotAllowed answers a known path requested with the wrong method.
	MessageMethodNotAllowed = "method not allowed"

	defaultMaxBodySize = 1 << 20

	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"

	actionStatus domain.Action = "status"
)

// ErrBadRequestBody is returned when a request body is not the expected JSON object.
var ErrBadRequestBody = errors.New("bad request body")

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig

	// WebDirs are searched in order for the index.html served at /
	WebDirs []string `env:"WEB_DIR" envSeparator:"," envDefault:"web,../web,../../web,."`

	// MetricsEnabled exposes the Prometheus registry at /metrics
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// MaxBodySize is the largest accepted request body in bytes, 0 means 1 MiB
	MaxBodySize int64 `env:"MAX_BODY_SIZE" envDefault:"1048576"`
}

// credentials is the JSON body of login and register requests.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// StatusResponse is the JSON body of the status endpoint.
type StatusResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// HTTPTransport handles HTTP requests for the account service.
type HTTPTransport struct {
	accountSvc *AccountService
	metrics    *Metrics
	log        logging.Logger
	cfg        HTTPTransportConfig
	router     *mux.Router
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport with the given configuration.
// metrics may be nil, in which case nothing is recorded or exposed.
func NewHTTPTransport(
	accountSvc *AccountService,
	metrics *Metrics,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	ht := &HTTPTransport{
		accountSvc: accountSvc,
		metrics:    metrics,
		log:        logging.GetLogger("svc.accountsvc.http_transport"),
		cfg:        cfg,
	}

	ht.router = ht.routes()

	return ht
}

// routes sets up the account service endpoints:
// - POST /api/login: authenticate a username/password pair
// - POST /api/register: create an account
// - GET /api/status: liveness and version
// - GET /metrics: Prometheus metrics
// - GET / and /index.html: the web front page.
func (ht *HTTPTransport) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/login", ht.HandleLogin).Methods(http.MethodPost)
	router.HandleFunc("/api/register", ht.HandleRegister).Methods(http.MethodPost)
	router.HandleFunc("/api/status", ht.HandleStatus).Methods(http.MethodGet)
	router.HandleFunc("/", ht.HandleIndex).Methods(http.MethodGet)
	router.HandleFunc("/index.html", ht.HandleIndex).Methods(http.MethodGet)

	if ht.metrics != nil && ht.cfg.MetricsEnabled {
		router.Handle("/metrics", ht.metrics.Handler()).Methods(http.MethodGet)
	}

	router.MethodNotAllowedHandler = http.HandlerFunc(ht.HandleMethodNotAllowed)

	return router
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.router.ServeHTTP(w, r)
}

// ListenAndServe serves the HTTP API on the configured address until ctx is cancelled.
func (ht *HTTPTransport) ListenAndServe(ctx context.Context) error {
	return http_.ListenAndServe(ctx, ht, ht.cfg.HTTPTransportConfig)
}

// HandleLogin processes login requests.
// Expects a JSON body {username, password}. Answers 200 for every decodable
// body, with success=false for bad credentials.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogin(w, r)
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	var (
		log   = ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))
		start = time.Now()
		resp  domain.Response
	)

	defer func(ctx context.Context) {
		ht.metrics.Observe(TransportHTTP, domain.ActionLogin, resp.Success, time.Since(start))

		if err != nil {
			log.ErrorContext(ctx, "user login failed", "error", err)
		} else {
			log.DebugContext(ctx, "user login handled", "success", resp.Success)
		}
	}(r.Context())

	var body credentials
	if err := ht.decodeJSON(w, r, &body); err != nil {
		resp = domain.FailWith(err)

		return errors.Join(err, writeJSON(w, http.StatusBadRequest, resp))
	}

	ctx := context_.WithUsername(r.Context(), body.Username)

	account, err := ht.accountSvc.Login(ctx, body.Username, body.Password)
	switch {
	case err == nil:
		resp = domain.OK(MessageLoginSuccessful, account)

		return writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, domain.ErrInvalidCredentials):
		resp = domain.FailWith(err)

		return writeJSON(w, http.StatusOK, resp)
	default:
		resp = domain.FailWith(err)

		return errors.Join(fmt.Errorf("login: %w", err), writeJSON(w, http.StatusInternalServerError, resp))
	}
}

// HandleRegister processes registration requests.
// Expects a JSON body {username, password[, email]}. Answers 201 with the new
// account, 400 for invalid input or a taken username, 500 otherwise.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRegister(w, r)
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	var (
		log   = ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))
		start = time.Now()
		resp  domain.Response
	)

	defer func(ctx context.Context) {
		ht.metrics.Observe(TransportHTTP, domain.ActionRegister, resp.Success, time.Since(start))

		if err != nil {
			log.ErrorContext(ctx, "user register failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}(r.Context())

	var body credentials
	if err := ht.decodeJSON(w, r, &body); err != nil {
		resp = domain.FailWith(err)

		return errors.Join(err, writeJSON(w, http.StatusBadRequest, resp))
	}

	ctx := context_.WithUsername(r.Context(), body.Username)

	account, err := ht.accountSvc.RegisterOptionalEmail(ctx, domain.Account{
		Username: body.Username,
		Password: body.Password,
		Email:    body.Email,
	})
	switch {
	case err == nil:
		resp = domain.OK(MessageRegistrationSuccessful, account)

		return writeJSON(w, http.StatusCreated, resp)
	case domain.IsValidationError(err):
		resp = domain.FailWith(err)

		return errors.Join(err, writeJSON(w, http.StatusBadRequest, resp))
	default:
		resp = domain.FailWith(err)

		return errors.Join(fmt.Errorf("register: %w", err), writeJSON(w, http.StatusInternalServerError, resp))
	}
}

// HandleStatus reports that the server is up. It does not touch the directory.
func (ht *HTTPTransport) HandleStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	err := writeJSON(w, http.StatusOK, StatusResponse{
		Success:   true,
		Message:   MessageServerRunning,
		Timestamp: time.Now().UnixMilli(),
		Version:   Version,
	})

	ht.metrics.Observe(TransportHTTP, actionStatus, err == nil, time.Since(start))

	if err != nil {
		ht.log.ErrorContext(r.Context(), "status failed", "error", err)
	}
}

// HandleIndex serves index.html from the first configured web directory holding one.
func (ht *HTTPTransport) HandleIndex(w http.ResponseWriter, r *http.Request) {
	for _, dir := range ht.cfg.WebDirs {
		page, err := os.ReadFile(filepath.Join(dir, "index.html"))
		if err != nil {
			continue
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		w.WriteHeader(http.StatusOK)

		if _, err := w.Write(page); err != nil {
			ht.log.ErrorContext(r.Context(), "write index failed", "error", err)
		}

		return
	}

	http.NotFound(w, r)
}

// HandleMethodNotAllowed answers a known path requested with an unsupported method.
func (ht *HTTPTransport) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusMethodNotAllowed, domain.Fail(MessageMethodNotAllowed)); err != nil {
		ht.log.ErrorContext(r.Context(), "write response failed", "error", err)
	}
}

func (ht *HTTPTransport) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	limit := ht.cfg.MaxBodySize
	if limit <= 0 {
		limit = defaultMaxBodySize
	}

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v); err != nil {
		return fmt.Errorf("%w: %w: %w", domain.ErrMalformedRequest, ErrBadRequestBody, err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}
