package domain

import "errors"

// MessageInternalError is the generic text used for failures that are not
// caused by the caller's input.
const MessageInternalError = "request processing error"

// Response is the result of a single request, shared by both transports.
// Data holds an Account, a bool or nothing, depending on the action.
type Response struct {
	Success bool   `json:"success" cbor:"success"`
	Message string `json:"message" cbor:"message"`
	Data    any    `json:"data"    cbor:"data"`
}

// OK creates a successful response.
func OK(message string, data any) Response {
	return Response{Success: true, Message: message, Data: data}
}

// Fail creates a failed response without payload.
func Fail(message string) Response {
	return Response{Success: false, Message: message}
}

// FailWith creates a failed response carrying the user-facing message for err.
func FailWith(err error) Response {
	return Fail(Message(err))
}

// Message returns the user-facing text for err. Known domain errors map to
// their own text, anything else to MessageInternalError.
func Message(err error) string {
	for _, known := range []error{
		ErrEmptyUsername,
		ErrUsernameTooShort,
		ErrPasswordTooShort,
		ErrInvalidEmail,
		ErrUserAlreadyExists,
		ErrUserNotFound,
		ErrInvalidCredentials,
		ErrMalformedRequest,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}

	var unknown *UnknownActionError
	if errors.As(err, &unknown) {
		return unknown.Error()
	}

	return MessageInternalError
}
