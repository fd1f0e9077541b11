package playstore

import (
	"crypto/rsa"
	"fmt"
	"net/http"

	"google.golang.org/api/androidpublisher/v3"
)

const (
	// TokenURL is Google's OAuth2 token endpoint, also used as the assertion audience
	TokenURL = "https://accounts.google.com/o/oauth2/token"
	// Scope grants access to the Google Play Developer API
	Scope = androidpublisher.AndroidpublisherScope
)

// ClientConfig configures a Client. It must be fully populated before Boot and is never modified by the client.
type ClientConfig struct {
	// ApplicationName and ApplicationVersion identify the caller to the remote service.
	ApplicationName    string
	ApplicationVersion string

	// Issuer is the service account email used as the assertion issuer.
	Issuer string
	// Subject is an optional user to impersonate with domain-wide delegation.
	Subject string
	// SigningKey signs the assertion.
	SigningKey *rsa.PrivateKey

	// TokenURL overrides the token endpoint and audience. Defaults to TokenURL.
	TokenURL string
	// Endpoint overrides the publisher API base path, e.g. for a local stub. Must end with a slash.
	Endpoint string
	// HTTPClient is the base client for both the token exchange and the lookups. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Validate checks that all mandatory fields are set
func (config *ClientConfig) Validate() error {
	if config == nil {
		return fmt.Errorf("%w: missing configuration", ErrInvalidConfig)
	}

	if len(config.ApplicationName) == 0 {
		return fmt.Errorf("%w: application name is mandatory", ErrInvalidConfig)
	}

	if len(config.ApplicationVersion) == 0 {
		return fmt.Errorf("%w: application version is mandatory", ErrInvalidConfig)
	}

	if len(config.Issuer) == 0 {
		return fmt.Errorf("%w: issuer is mandatory", ErrInvalidConfig)
	}

	if config.SigningKey == nil {
		return fmt.Errorf("%w: signing key is mandatory", ErrInvalidConfig)
	}

	return nil
}

// UserAgent is the application part of the User-Agent header sent to the publisher API
func (config *ClientConfig) UserAgent() string {
	return config.ApplicationName + "/" + config.ApplicationVersion
}

func (config *ClientConfig) tokenURL() string {
	if len(config.TokenURL) > 0 {
		return config.TokenURL
	}
	return TokenURL
}

func (config *ClientConfig) httpClient() *http.Client {
	if config.HTTPClient != nil {
		return config.HTTPClient
	}
	return http.DefaultClient
}
