package accountsvc

import (
	"fmt"
	"strings"

	"github.com/mkrupp/homecase-accounts/internal/domain"
)

const fieldSeparator = ":"

// Receiver reads one decoded frame.
type Receiver interface {
	Receive(v any) error
}

// Sender writes one encoded frame.
type Sender interface {
	Send(v any) error
}

// DecodeRequest reads a request from the socket protocol.
//
// The first frame is a text string "action[:field...]":
//
//	login:<username>:<password>
//	exists:<username>
//	getUser:<username>
//	register
//
// A register line is followed by a second frame holding the account.
// The last field takes the rest of the line, so it may contain ':'.
// Missing or empty fields yield domain.ErrMalformedRequest, unknown actions
// (the empty line included) a *domain.UnknownActionError.
func DecodeRequest(r Receiver) (domain.Request, error) {
	var line string
	if err := r.Receive(&line); err != nil {
		return nil, fmt.Errorf("receive request line: %w", malformed(err))
	}

	action, rest, _ := strings.Cut(line, fieldSeparator)

	switch domain.Action(action) {
	case domain.ActionLogin:
		fields, err := splitFields(rest, 2) //nolint:mnd
		if err != nil {
			return nil, err
		}

		return domain.LoginRequest{Username: fields[0], Password: fields[1]}, nil

	case domain.ActionExists:
		fields, err := splitFields(rest, 1)
		if err != nil {
			return nil, err
		}

		return domain.ExistsRequest{Username: fields[0]}, nil

	case domain.ActionGetUser:
		fields, err := splitFields(rest, 1)
		if err != nil {
			return nil, err
		}

		return domain.GetUserRequest{Username: fields[0]}, nil

	case domain.ActionRegister:
		var account domain.Account
		if err := r.Receive(&account); err != nil {
			return nil, fmt.Errorf("receive account: %w", malformed(err))
		}

		return domain.RegisterRequest{Account: account}, nil

	default:
		return nil, &domain.UnknownActionError{Action: action}
	}
}

// EncodeRequest writes req in the socket protocol, the counterpart of DecodeRequest.
func EncodeRequest(w Sender, req domain.Request) error {
	var line string

	switch req := req.(type) {
	case domain.LoginRequest:
		// The username is not the last field and cannot carry the separator.
		if strings.Contains(req.Username, fieldSeparator) {
			return fmt.Errorf("encode login: %w", domain.ErrMalformedRequest)
		}

		line = joinFields(domain.ActionLogin, req.Username, req.Password)
	case domain.ExistsRequest:
		line = joinFields(domain.ActionExists, req.Username)
	case domain.GetUserRequest:
		line = joinFields(domain.ActionGetUser, req.Username)
	case domain.RegisterRequest:
		line = string(domain.ActionRegister)
	default:
		return fmt.Errorf("encode %T: %w", req, domain.ErrMalformedRequest)
	}

	if err := w.Send(line); err != nil {
		return fmt.Errorf("send request line: %w", err)
	}

	if req, ok := req.(domain.RegisterRequest); ok {
		if err := w.Send(req.Account); err != nil {
			return fmt.Errorf("send account: %w", err)
		}
	}

	return nil
}

func splitFields(rest string, n int) ([]string, error) {
	fields := strings.SplitN(rest, fieldSeparator, n)
	if len(fields) != n {
		return nil, domain.ErrMalformedRequest
	}

	for _, field := range fields {
		if field == "" {
			return nil, domain.ErrMalformedRequest
		}
	}

	return fields, nil
}

func joinFields(action domain.Action, fields ...string) string {
	return strings.Join(append([]string{string(action)}, fields...), fieldSeparator)
}

// malformed marks a frame that could not be read or decoded as malformed
// while keeping the cause.
func malformed(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrMalformedRequest, err)
}
