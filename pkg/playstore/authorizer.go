package playstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const (
	assertionGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionLifetime  = time.Hour
)

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// TokenAuthorizer fetches access tokens with the OAuth2 JWT bearer assertion flow and holds the current one.
// It implements oauth2.TokenSource over the cached token and never refreshes on its own.
type TokenAuthorizer struct {
	config *ClientConfig
	now    func() time.Time

	mu    sync.RWMutex
	token *oauth2.Token
}

// NewTokenAuthorizer creates an authorizer for the service account in config
func NewTokenAuthorizer(config *ClientConfig) *TokenAuthorizer {
	return &TokenAuthorizer{
		config: config,
		now:    time.Now,
	}
}

// Authorize exchanges a freshly signed assertion for an access token and caches it.
// Every failure is an *AuthorizationError; the cached token is kept on failure.
func (authorizer *TokenAuthorizer) Authorize(ctx context.Context) (*oauth2.Token, error) {
	tokenURL := authorizer.config.tokenURL()
	contextLogger := log.WithFields(log.Fields{
		"issuer":   authorizer.config.Issuer,
		"tokenURL": tokenURL,
	})

	assertion, err := authorizer.Assertion()
	if err != nil {
		return nil, &AuthorizationError{Err: err}
	}

	form := url.Values{}
	form.Set("grant_type", assertionGrantType)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &AuthorizationError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := authorizer.config.httpClient().Do(req)
	if err != nil {
		contextLogger.WithError(err).Error("Token endpoint is unreachable")
		return nil, &AuthorizationError{Err: err}
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, &AuthorizationError{StatusCode: resp.StatusCode, Err: err}
	}

	var tokenResp tokenResponse
	jsonErr := json.Unmarshal(body, &tokenResp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || jsonErr != nil || len(tokenResp.AccessToken) == 0 {
		authErr := &AuthorizationError{
			StatusCode:  resp.StatusCode,
			Code:        tokenResp.Error,
			Description: tokenResp.ErrorDescription,
			Body:        body,
		}
		contextLogger.WithFields(log.Fields{
			"status": resp.StatusCode,
			"code":   tokenResp.Error,
		}).Error("Token endpoint rejected the assertion")
		return nil, authErr
	}

	token := &oauth2.Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
	}
	if tokenResp.ExpiresIn > 0 {
		token.Expiry = authorizer.now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}

	authorizer.mu.Lock()
	authorizer.token = token
	authorizer.mu.Unlock()

	contextLogger.WithField("expiry", token.Expiry).Info("Fetched access token")
	return token, nil
}

// Assertion builds the signed JWT presented to the token endpoint.
// The audience is the token endpoint the assertion is posted to.
func (authorizer *TokenAuthorizer) Assertion() (string, error) {
	now := authorizer.now()
	claims := jwt.MapClaims{
		"iss":   authorizer.config.Issuer,
		"scope": Scope,
		"aud":   authorizer.config.tokenURL(),
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}
	if len(authorizer.config.Subject) > 0 {
		claims["sub"] = authorizer.config.Subject
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(authorizer.config.SigningKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}

// Token returns the cached access token
func (authorizer *TokenAuthorizer) Token() (*oauth2.Token, error) {
	authorizer.mu.RLock()
	defer authorizer.mu.RUnlock()

	if authorizer.token == nil {
		return nil, ErrNotAuthorized
	}
	return authorizer.token, nil
}
