package session

import "fmt"

// Reason classifies a failed scripted login.
type Reason string

const (
	// ReasonPreflight: the login entry point did not answer 200; the
	// provider is unreachable or has changed its flow.
	ReasonPreflight Reason = "preflight"
	// ReasonInvalidCredentials: the provider rejected the username or
	// password. Do not retry.
	ReasonInvalidCredentials Reason = "invalid_credentials"
	// ReasonAccountLocked: the provider locked the account. Do not retry.
	ReasonAccountLocked Reason = "account_locked"
	// ReasonPasswordResetRequired: the provider demands a password reset
	// before any further login. Do not retry.
	ReasonPasswordResetRequired Reason = "password_reset_required"
	// ReasonTransientProvider: the provider reported itself temporarily
	// unavailable or answered out of protocol. Retryable with backoff.
	ReasonTransientProvider Reason = "transient_provider"
	// ReasonRedirectChainExhausted: the post-login redirect chain never
	// reached a terminal response within the hop bound. Retryable.
	ReasonRedirectChainExhausted Reason = "redirect_chain_exhausted"
)

// LoginError is a classified scripted-login failure.
type LoginError struct {
	Reason Reason
	Detail string
}

func (e *LoginError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("login failed: %s", e.Reason)
	}
	return fmt.Sprintf("login failed: %s: %s", e.Reason, e.Detail)
}

// Retryable reports whether the caller may retry the login with backoff.
// Credential-shaped failures are fatal until the user intervenes.
func (e *LoginError) Retryable() bool {
	return e.Reason == ReasonTransientProvider || e.Reason == ReasonRedirectChainExhausted
}
