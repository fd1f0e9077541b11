package playstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	productPurchasePath      = "androidpublisher/v3/applications/{packageName}/purchases/products/{productId}/tokens/{token}"
	subscriptionPurchasePath = "androidpublisher/v3/applications/{packageName}/purchases/subscriptions/{subscriptionId}/tokens/{token}"
)

// Client verifies purchases against the Google Play Developer API.
//
// Usage:
//	client, err := playstore.NewClient(config)
//	err = client.Boot(ctx) // a single time
//	result, err := client.Verify(ctx, "my.bundle", "product_1", "a-very-long-secure-token")
//
// Once booted, Verify may be called concurrently.
type Client struct {
	config     *ClientConfig
	authorizer *TokenAuthorizer

	mu         sync.Mutex
	booted     bool
	httpClient *http.Client
	service    *androidpublisher.Service
}

// NewClient creates an unbooted client
func NewClient(config *ClientConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config:     config,
		authorizer: NewTokenAuthorizer(config),
	}, nil
}

// Boot builds the publisher API transport and fetches the access token used by every later call.
// An *AuthorizationError is returned as is and leaves the client unbooted.
func (client *Client) Boot(ctx context.Context) error {
	client.mu.Lock()
	defer client.mu.Unlock()

	if client.booted {
		return ErrAlreadyBooted
	}

	base := client.config.httpClient()
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: client.authorizer,
			Base:   base.Transport,
		},
		Timeout: base.Timeout,
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if len(client.config.Endpoint) > 0 {
		opts = append(opts, option.WithEndpoint(client.config.Endpoint))
	}

	service, err := androidpublisher.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create android publisher service: %w", err)
	}
	service.UserAgent = client.config.UserAgent()

	if _, err := client.authorizer.Authorize(ctx); err != nil {
		return err
	}

	client.httpClient = httpClient
	client.service = service
	client.booted = true

	log.WithFields(log.Fields{
		"application": client.config.UserAgent(),
		"issuer":      client.config.Issuer,
	}).Info("Play store client booted")
	return nil
}

// Booted reports whether Boot succeeded
func (client *Client) Booted() bool {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.booted
}

// Authorizer returns the authorizer holding the client's access token
func (client *Client) Authorizer() *TokenAuthorizer {
	return client.authorizer
}

// Verify loads the product purchase for a purchase token.
// API errors are returned as data: the error envelope when the response carried one, an empty Result otherwise.
// Only transport failures are returned as errors.
func (client *Client) Verify(ctx context.Context, packageName string, productID string, token string) (Result, error) {
	return client.lookup(ctx, productPurchasePath, map[string]string{
		"packageName": packageName,
		"productId":   productID,
		"token":       token,
	})
}

// VerifySubscription loads the subscription purchase for a purchase token, with the same contract as Verify
func (client *Client) VerifySubscription(ctx context.Context, packageName string, subscriptionID string, token string) (Result, error) {
	return client.lookup(ctx, subscriptionPurchasePath, map[string]string{
		"packageName":    packageName,
		"subscriptionId": subscriptionID,
		"token":          token,
	})
}

func (client *Client) lookup(ctx context.Context, path string, params map[string]string) (Result, error) {
	client.mu.Lock()
	booted, httpClient, service := client.booted, client.httpClient, client.service
	client.mu.Unlock()

	if !booted {
		return nil, ErrNotBooted
	}

	for name, value := range params {
		if len(strings.TrimSpace(value)) == 0 {
			return nil, fmt.Errorf("%w: %s is empty", ErrInvalidArgument, name)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleapi.ResolveRelative(service.BasePath, path)+"?alt=json&prettyPrint=false", nil)
	if err != nil {
		return nil, err
	}
	googleapi.Expand(req.URL, params)
	req.Header.Set("User-Agent", googleapi.UserAgent+" "+service.UserAgent)

	contextLogger := log.WithFields(log.Fields{
		"packageName": params["packageName"],
		"path":        req.URL.Path,
	})

	resp, err := httpClient.Do(req)
	if err != nil {
		contextLogger.WithError(err).Error("Play store lookup failed")
		return nil, err
	}
	defer googleapi.CloseBody(resp)

	if err := googleapi.CheckResponse(resp); err != nil {
		return normalizeAPIError(contextLogger, err), nil
	}

	result, ok := decodeResult(resp.Body)
	if !ok {
		contextLogger.Warn("Play store returned a body that is not a JSON object")
	}
	return result, nil
}

// normalizeAPIError turns a *googleapi.Error into the Result carried by its body
func normalizeAPIError(contextLogger *log.Entry, err error) Result {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return Result{}
	}

	contextLogger = contextLogger.WithField("status", apiErr.Code)
	if len(apiErr.Body) == 0 {
		contextLogger.Warn("Play store returned an error without body")
		return Result{}
	}

	result, ok := decodeResult(strings.NewReader(apiErr.Body))
	if !ok {
		contextLogger.Warn("Play store returned an error body that is not a JSON object")
		return Result{}
	}

	contextLogger.WithField("message", result.ErrorMessage()).Info("Play store rejected the lookup")
	return result
}
