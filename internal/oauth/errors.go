package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCode means the provider callback arrived without an
	// authorization code.
	ErrMissingCode = errors.New("no authorization code received")

	// ErrMismatchingState means the callback's state parameter failed to
	// verify: it was absent, tampered with, or not minted by this broker.
	// Token exchange is never attempted in this case.
	ErrMismatchingState = errors.New("mismatching state")
)

// TokenExchangeError wraps a failed authorization-code or refresh-token
// exchange with the provider's token endpoint.
type TokenExchangeError struct {
	Provider string
	Err      error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("%s token exchange failed: %v", e.Provider, e.Err)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }
