package flow

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Authenticator is the external auth collaborator. The adapter gates on
// the boolean only; token lifecycle lives outside the core.
type Authenticator interface {
	// Authenticate attempts to authenticate the backend.
	Authenticate(ctx context.Context) error

	// IsAuthenticated reports whether the backend is authenticated.
	IsAuthenticated() bool

	// AuthURL returns the URL a user should visit to authenticate, or
	// empty when no interactive step exists.
	AuthURL() string
}

// noAuth is used by flows that never require authentication.
type noAuth struct{}

func (noAuth) Authenticate(context.Context) error { return nil }
func (noAuth) IsAuthenticated() bool              { return true }
func (noAuth) AuthURL() string                    { return "" }

// NoAuth returns an Authenticator that is always authenticated.
func NoAuth() Authenticator {
	return noAuth{}
}

// EnvKeyAuth authenticates off the presence of an environment variable
// holding an API key, the common case for hosted backends.
type EnvKeyAuth struct {
	// EnvVar is the environment variable holding the key.
	EnvVar string
	// URL points at the provider's key-management console.
	URL string
}

// Authenticate verifies the key is present.
func (a *EnvKeyAuth) Authenticate(context.Context) error {
	if os.Getenv(a.EnvVar) == "" {
		return fmt.Errorf("%s is not set", a.EnvVar)
	}
	return nil
}

// IsAuthenticated reports whether the key is present.
func (a *EnvKeyAuth) IsAuthenticated() bool {
	return os.Getenv(a.EnvVar) != ""
}

// AuthURL returns the provider console URL.
func (a *EnvKeyAuth) AuthURL() string {
	return a.URL
}

// StaticAuth is a toggleable authenticator for tests.
type StaticAuth struct {
	mu     sync.Mutex
	authed bool
	url    string
}

// NewStaticAuth creates a StaticAuth in the given state.
func NewStaticAuth(authed bool, url string) *StaticAuth {
	return &StaticAuth{authed: authed, url: url}
}

// Authenticate marks the authenticator as authenticated.
func (a *StaticAuth) Authenticate(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.authed = true
	return nil
}

// IsAuthenticated reports the current state.
func (a *StaticAuth) IsAuthenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authed
}

// AuthURL returns the configured URL.
func (a *StaticAuth) AuthURL() string {
	return a.url
}
