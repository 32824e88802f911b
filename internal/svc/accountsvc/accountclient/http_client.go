package accountclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	context_ "github.com/mkrupp/homecase-accounts/internal/infra/context"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
	"github.com/mkrupp/homecase-accounts/internal/svc/accountsvc"
)

//nolint:gochecknoglobals
var jsonNull = []byte("null")

// HTTPClientConfig holds configuration for the HTTP account client.
type HTTPClientConfig struct {
	// BaseURL is the scheme and host of the HTTP dispatcher
	BaseURL string `env:"HTTP_URL" envDefault:"http://localhost:8080"`

	// Timeout bounds each call from connect to response
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

// HTTPClient implements Authenticator using the JSON API.
type HTTPClient struct {
	httpClient *http.Client
	log        logging.Logger
	cfg        HTTPClientConfig
}

var _ Authenticator = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTPClient with the given configuration.
// If httpClient is nil, http.DefaultClient will be used.
func NewHTTPClient(
	cfg HTTPClientConfig,
	httpClient *http.Client,
) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &HTTPClient{
		httpClient: httpClient,
		log:        logging.GetLogger("svc.accountsvc.http_client"),
		cfg:        cfg,
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

type jsonResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Login implements Authenticator.Login via POST /api/login.
func (c *HTTPClient) Login(ctx context.Context, username, password string) domain.Response {
	return c.call(ctx, http.MethodPost, "/api/login", credentials{Username: username, Password: password}, payloadAccount)
}

// Register implements Authenticator.Register via POST /api/register.
func (c *HTTPClient) Register(ctx context.Context, account domain.Account) domain.Response {
	return c.call(ctx, http.MethodPost, "/api/register", credentials(account), payloadAccount)
}

// Status queries GET /api/status. The response data is the accountsvc.StatusResponse.
func (c *HTTPClient) Status(ctx context.Context) domain.Response {
	var status accountsvc.StatusResponse

	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		c.log.ErrorContext(ctx, "http call failed", "path", "/api/status", "error", err)

		return connectionFailed(err)
	}

	return domain.Response{Success: status.Success, Message: status.Message, Data: status}
}

func (c *HTTPClient) call(ctx context.Context, method, path string, body any, data payload) domain.Response {
	var wire jsonResponse

	if err := c.do(ctx, method, path, body, &wire); err != nil {
		c.log.ErrorContext(ctx, "http call failed", "path", path, "error", err)

		return connectionFailed(err)
	}

	decoded, err := data.decode(wire.Data, jsonNull, json.Unmarshal)
	if err != nil {
		return connectionFailed(err)
	}

	return domain.Response{Success: wire.Success, Message: wire.Message, Data: decoded}
}

// do sends one request and decodes the JSON answer into out. Error status
// codes carrying a JSON body are answers of the protocol, not failures.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	var reqBody bytes.Buffer

	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(c.cfg.BaseURL, "/")+path, &reqBody)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if traceID, ok := context_.TraceIDFromContext(ctx); ok {
		req.Header.Set(TraceIDHeader, traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType != "application/json" {
		return fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
