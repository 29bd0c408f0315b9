package oauth

import (
	"context"
	"fmt"

	"github.com/gsarma/fitrelay/internal/credentials"
)

// AuthorizationRequest starts an authorization-code flow. Context is
// caller-supplied opaque data (for example a pending upload descriptor)
// that must survive the redirect round trip unmodified.
type AuthorizationRequest struct {
	Provider string
	Context  []byte
}

// Broker drives the authorization-code grant across the registered
// providers and persists the resulting tokens. A successful exchange is the
// only path that writes a credential; failed exchanges leave the store
// untouched.
type Broker struct {
	store     *credentials.FileStore
	codec     *StateCodec
	providers map[string]Provider
}

func NewBroker(store *credentials.FileStore, codec *StateCodec, providers map[string]Provider) *Broker {
	return &Broker{store: store, codec: codec, providers: providers}
}

// Provider returns the registered provider by name.
func (b *Broker) Provider(name string) (Provider, bool) {
	p, ok := b.providers[name]
	return p, ok
}

// AuthorizeURL builds the provider authorize URL with the request context
// sealed into the state parameter.
func (b *Broker) AuthorizeURL(req AuthorizationRequest) (string, error) {
	p, ok := b.providers[req.Provider]
	if !ok {
		return "", fmt.Errorf("unknown provider %q", req.Provider)
	}
	state, err := b.codec.Encode(req.Provider, req.Context)
	if err != nil {
		return "", err
	}
	return p.AuthURL(state), nil
}

// HandleCallback completes the flow: verifies the echoed state, exchanges
// the code for tokens, persists them, and returns the stored credential
// along with the opaque context recovered from the state.
func (b *Broker) HandleCallback(ctx context.Context, code, state string) (*credentials.Credential, []byte, error) {
	if code == "" {
		return nil, nil, ErrMissingCode
	}
	providerName, opaque, err := b.codec.Decode(state)
	if err != nil {
		return nil, nil, err
	}
	p, ok := b.providers[providerName]
	if !ok {
		// Signed for a provider this broker no longer serves.
		return nil, nil, ErrMismatchingState
	}

	token, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, nil, &TokenExchangeError{Provider: providerName, Err: err}
	}

	cred, _, err := b.store.Load(providerName)
	if err != nil {
		return nil, nil, err
	}
	cred.Provider = providerName
	cred.AccessToken = token.AccessToken
	cred.RefreshToken = token.RefreshToken
	cred.Scope = token.Scope
	if err := b.store.Save(cred); err != nil {
		return nil, nil, err
	}
	return &cred, opaque, nil
}

// Refresh renews the stored credential for a provider using its refresh
// token and persists the result.
func (b *Broker) Refresh(ctx context.Context, providerName string) (*credentials.Credential, error) {
	p, ok := b.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", providerName)
	}
	cred, found, err := b.store.Load(providerName)
	if err != nil {
		return nil, err
	}
	if !found || cred.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token for %s", providerName)
	}
	token, err := p.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		return nil, &TokenExchangeError{Provider: providerName, Err: err}
	}
	cred.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		cred.RefreshToken = token.RefreshToken
	}
	if err := b.store.Save(cred); err != nil {
		return nil, err
	}
	return &cred, nil
}
