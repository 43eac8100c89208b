// Package auth reads the responses of the site's authentication API far enough
// to announce logins and registrations on the page bus.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vincentbai/visionui-beacon/internal/bus"
)

// Kinds of authentication calls.
const (
	KindLogin    = "login"
	KindRegister = "register"
)

var (
	ErrUnknownKind = errors.New("unknown auth response kind")
	ErrNoToken     = errors.New("auth response carries no token")
)

// Response is the body returned by /api/user/login and /api/user/register.
type Response struct {
	Success      bool   `json:"success"`
	Token        string `json:"token"`
	SessionToken string `json:"session_token"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Error        string `json:"error"`
}

// Decode parses a raw response body.
func Decode(body []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(body, &r); err != nil {
		return Response{}, fmt.Errorf("failed to decode auth response: %w", err)
	}
	return r, nil
}

// BearerToken returns the session token. The API has shipped it as both
// session_token and token; session_token wins when both are present.
func (r Response) BearerToken() string {
	if r.SessionToken != "" {
		return r.SessionToken
	}
	return r.Token
}

// Signal converts a successful response into the bus signal announcing it.
func (r Response) Signal(kind string) (bus.Signal, error) {
	if !r.Success {
		if r.Error != "" {
			return bus.Signal{}, errors.New(r.Error)
		}
		return bus.Signal{}, errors.New("authentication failed")
	}
	if r.BearerToken() == "" {
		return bus.Signal{}, ErrNoToken
	}
	switch kind {
	case KindLogin:
		return bus.Signal{Name: bus.SignalLogin, Email: r.Email}, nil
	case KindRegister:
		return bus.Signal{Name: bus.SignalRegistration, Email: r.Email}, nil
	default:
		return bus.Signal{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
