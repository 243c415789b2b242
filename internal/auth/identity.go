package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// GoogleTokenInfoURL is Google's ID-token introspection endpoint.
const GoogleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// Identity is what a verified credential asserts about its holder.
// HostedDomain is Google's "hd" claim; it is informational only.
type Identity struct {
	Email        string
	HostedDomain string
	Subject      string
}

// Verifier validates an opaque identity credential.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// GoogleVerifier checks Google ID tokens (the "credential" handed to the
// browser by Google Identity Services) against the tokeninfo endpoint.
type GoogleVerifier struct {
	clientID string
	endpoint string
	client   *http.Client
}

// NewGoogleVerifier returns a verifier that accepts tokens issued to
// clientID. timeout bounds the whole round trip to Google.
func NewGoogleVerifier(clientID string, timeout time.Duration) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		endpoint: GoogleTokenInfoURL,
		client:   &http.Client{Timeout: timeout},
	}
}

// WithEndpoint points the verifier at another tokeninfo URL. Used in tests.
func (v *GoogleVerifier) WithEndpoint(endpoint string) *GoogleVerifier {
	v.endpoint = endpoint
	return v
}

// tokenInfo is the subset of the tokeninfo response we check. Google returns
// every value as a JSON string.
type tokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	HD            string `json:"hd"`
	Exp           string `json:"exp"`
}

// Verify asks Google whether credential is a live ID token for our client
// and returns the identity it carries.
func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, errors.New("auth: empty credential")
	}

	reqURL := v.endpoint + "?" + url.Values{"id_token": {credential}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building tokeninfo request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: tokeninfo returned status %d", resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("auth: decoding tokeninfo response: %w", err)
	}

	if info.Aud != v.clientID {
		return nil, fmt.Errorf("auth: token audience %q does not match client", info.Aud)
	}
	if info.EmailVerified != "true" {
		return nil, errors.New("auth: email not verified by Google")
	}
	if info.Email == "" {
		return nil, errors.New("auth: token carries no email")
	}
	if info.Exp != "" {
		exp, err := strconv.ParseInt(info.Exp, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("auth: bad exp claim %q", info.Exp)
		}
		if time.Now().After(time.Unix(exp, 0)) {
			return nil, errors.New("auth: token expired")
		}
	}

	return &Identity{
		Email:        info.Email,
		HostedDomain: info.HD,
		Subject:      info.Sub,
	}, nil
}
