// Package googleid verifies Google ID-token assertions for federated
// sign-in. It is the single external identity call the service makes; the
// core depends on the Verifier contract only.
package googleid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const tokenInfoEndpoint = "https://oauth2.googleapis.com/tokeninfo"

// ErrAssertionInvalid is returned when the provider rejects the token or
// its claims do not match this application.
var ErrAssertionInvalid = errors.New("identity assertion invalid")

// Identity is the verified subject extracted from a provider assertion.
type Identity struct {
	Email       string
	SubjectID   string
	DisplayName string
}

// Verifier validates a provider assertion and returns the asserted
// identity. Implementations must honor ctx so callers can impose timeouts.
type Verifier interface {
	Verify(ctx context.Context, assertion string) (Identity, error)
}

// TokenInfoVerifier validates assertions against Google's tokeninfo
// endpoint, checking audience, expiry, and email verification.
type TokenInfoVerifier struct {
	clientID string
	client   *http.Client
	now      func() time.Time
}

// NewTokenInfoVerifier returns a verifier bound to clientID. httpClient may
// be nil for http.DefaultClient.
func NewTokenInfoVerifier(clientID string, httpClient *http.Client) *TokenInfoVerifier {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TokenInfoVerifier{clientID: clientID, client: httpClient, now: time.Now}
}

type tokenInfoResponse struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Exp           string `json:"exp"`
}

// Verify implements Verifier.
func (v *TokenInfoVerifier) Verify(ctx context.Context, assertion string) (Identity, error) {
	if assertion == "" {
		return Identity{}, ErrAssertionInvalid
	}

	endpoint := tokenInfoEndpoint + "?id_token=" + url.QueryEscape(assertion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("building tokeninfo request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("tokeninfo call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, ErrAssertionInvalid
	}

	var info tokenInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Identity{}, fmt.Errorf("decoding tokeninfo response: %w", err)
	}

	if info.Aud != v.clientID {
		return Identity{}, ErrAssertionInvalid
	}
	if info.Email == "" || info.Sub == "" || info.EmailVerified != "true" {
		return Identity{}, ErrAssertionInvalid
	}
	if exp, err := strconv.ParseInt(info.Exp, 10, 64); err != nil || !v.now().Before(time.Unix(exp, 0)) {
		return Identity{}, ErrAssertionInvalid
	}

	return Identity{
		Email:       info.Email,
		SubjectID:   info.Sub,
		DisplayName: info.Name,
	}, nil
}
