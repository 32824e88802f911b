package domain

import "errors"

var (
	// ErrMalformedRequest is returned when a request lacks required fields.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrUnknownRequest is returned when a request carries an unrecognized action tag.
	ErrUnknownRequest = errors.New("unknown request")
)

// UnknownActionError is returned for a request tag no handler exists for.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return ErrUnknownRequest.Error() + ": " + e.Action
}

// Is makes UnknownActionError match ErrUnknownRequest.
func (e *UnknownActionError) Is(target error) bool {
	return target == ErrUnknownRequest
}

// Action is the wire tag identifying a request kind.
type Action string

const (
	ActionLogin    Action = "login"
	ActionRegister Action = "register"
	ActionExists   Action = "exists"
	ActionGetUser  Action = "getUser"
)

// Request is one of LoginRequest, RegisterRequest, ExistsRequest or GetUserRequest.
// The set is closed: only types in this package implement it.
type Request interface {
	Action() Action
	isRequest()
}

// LoginRequest asks to authenticate a username/password pair.
type LoginRequest struct {
	Username string
	Password string
}

// RegisterRequest asks to create a new account.
type RegisterRequest struct {
	Account Account
}

// ExistsRequest asks whether a username is taken.
type ExistsRequest struct {
	Username string
}

// GetUserRequest asks for the stored account of a username.
type GetUserRequest struct {
	Username string
}

func (LoginRequest) Action() Action    { return ActionLogin }
func (RegisterRequest) Action() Action { return ActionRegister }
func (ExistsRequest) Action() Action   { return ActionExists }
func (GetUserRequest) Action() Action  { return ActionGetUser }

func (LoginRequest) isRequest()    {}
func (RegisterRequest) isRequest() {}
func (ExistsRequest) isRequest()   {}
func (GetUserRequest) isRequest()  {}
