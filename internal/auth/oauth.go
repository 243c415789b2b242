package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// GoogleProvider wraps golang.org/x/oauth2 for the Google Authorization Code
// flow. The callback trades the code for a token response and hands the
// id_token it contains to the same Verifier used by the credential login, so
// both entry points apply identical checks.
type GoogleProvider struct {
	config       *oauth2.Config
	hostedDomain string
}

// NewGoogleProvider creates a GoogleProvider. hostedDomain is passed to
// Google as the "hd" hint so the account chooser only offers accounts from
// that domain; it is a UX hint, the domain is still checked at login.
//
// Scopes we request:
//   - "openid" for an ID token in the token response
//   - "email" for the email and email_verified claims
func NewGoogleProvider(clientID, clientSecret, callbackURL, hostedDomain string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email"},
			Endpoint:     endpoints.Google,
		},
		hostedDomain: hostedDomain,
	}
}

// WithEndpoint overrides Google's endpoints. Used in tests.
func (p *GoogleProvider) WithEndpoint(ep oauth2.Endpoint) *GoogleProvider {
	p.config.Endpoint = ep
	return p
}

// AuthURL returns the URL to redirect the browser to. state is the signed
// value from StateService and comes back unchanged on the callback.
func (p *GoogleProvider) AuthURL(state string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	}
	if p.hostedDomain != "" {
		opts = append(opts, oauth2.SetAuthURLParam("hd", p.hostedDomain))
	}
	return p.config.AuthCodeURL(state, opts...)
}

// Exchange trades the authorization code for Google's token response and
// returns the raw id_token. The token still has to go through a Verifier.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", errors.New("auth: missing authorization code")
	}

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	idToken, ok := tok.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", errors.New("auth: token response carried no id_token")
	}
	return idToken, nil
}
