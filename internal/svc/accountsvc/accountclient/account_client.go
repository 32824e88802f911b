// Package accountclient calls the account service over its socket or HTTP
// protocol. Every call opens a new connection, makes a single attempt and
// reports any transport failure as an unsuccessful domain.Response.
package accountclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/mkrupp/homecase-accounts/internal/domain"
)

// MessageConnectionFailed prefixes the message of every transport failure.
const MessageConnectionFailed = "connection to server failed"

// TraceIDHeader carries the caller's trace ID on HTTP requests.
const TraceIDHeader = "X-Request-ID"

// ErrUnexpectedResponse is returned when the server answers with something
// that is not a response of the protocol.
var ErrUnexpectedResponse = errors.New("unexpected response")

// Authenticator is implemented by every client.
type Authenticator interface {
	// Login authenticates the username/password pair.
	// On success the response data is the *domain.Account.
	Login(ctx context.Context, username, password string) domain.Response

	// Register creates the account.
	Register(ctx context.Context, account domain.Account) domain.Response
}

// AccountClient is an Authenticator that can also look accounts up.
type AccountClient interface {
	Authenticator

	// Exists reports in the response data whether the username is taken.
	Exists(ctx context.Context, username string) domain.Response

	// GetUser returns the account as *domain.Account in the response data.
	GetUser(ctx context.Context, username string) domain.Response
}

func connectionFailed(err error) domain.Response {
	return domain.Fail(fmt.Sprintf("%s: %v", MessageConnectionFailed, err))
}

// payload names the Go type the response data of an operation is decoded into.
type payload int

const (
	payloadNone payload = iota
	payloadAccount
	payloadBool
)

// decode turns the raw response data into the payload type. Absent data and
// null decode to nil.
func (p payload) decode(raw, null []byte, unmarshal func([]byte, any) error) (any, error) {
	if len(raw) == 0 || bytes.Equal(raw, null) {
		return nil, nil //nolint:nilnil
	}

	switch p {
	case payloadAccount:
		var account domain.Account
		if err := unmarshal(raw, &account); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}

		return &account, nil

	case payloadBool:
		var b bool
		if err := unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("decode bool: %w", err)
		}

		return b, nil

	default:
		return nil, nil //nolint:nilnil
	}
}
