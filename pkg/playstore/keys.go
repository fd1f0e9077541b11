package playstore

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"software.sslmate.com/src/go-pkcs12"
)

// DefaultP12Secret is the password Google sets on generated .p12 key files
const DefaultP12Secret = "notasecret"

// ServiceAccountKey is the subset of a Google service account JSON key used by the client.
// The key's token_uri is not read: the assertion audience and the exchange endpoint are always ClientConfig.TokenURL.
type ServiceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`

	SigningKey *rsa.PrivateKey `json:"-"`
}

// ParseP12Key decodes the RSA private key of a PKCS#12 key file
func ParseP12Key(data []byte, secret string) (*rsa.PrivateKey, error) {
	privateKey, _, err := pkcs12.Decode(data, secret)
	if err != nil {
		return nil, fmt.Errorf("could not decode p12 key file: %w", err)
	}

	rsaKey, ok := privateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: p12 key file holds a %T", ErrUnsupportedKey, privateKey)
	}
	return rsaKey, nil
}

// ParsePEMKey decodes a PKCS#1 or PKCS#8 PEM encoded RSA private key
func ParsePEMKey(data []byte) (*rsa.PrivateKey, error) {
	rsaKey, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKey, err)
	}
	return rsaKey, nil
}

// ParseJSONKey decodes a service account JSON key and its embedded private key
func ParseJSONKey(data []byte) (*ServiceAccountKey, error) {
	var key ServiceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("could not parse service account key: %w", err)
	}

	if len(key.ClientEmail) == 0 {
		return nil, fmt.Errorf("%w: service account key has no client_email", ErrInvalidConfig)
	}

	signingKey, err := ParsePEMKey([]byte(key.PrivateKey))
	if err != nil {
		return nil, err
	}
	key.SigningKey = signingKey

	return &key, nil
}
