package playstore

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testIssuer      = "test_issuer@developer.gserviceaccount.com"
	testAccessToken = "ya29.test-access-token"

	authSuccess = `{"access_token":"` + testAccessToken + `","token_type":"Bearer","expires_in":3600}`
	authFailure = `{"error":"invalid_grant","error_description":"Invalid JWT Signature."}`

	productsSuccess = `{
 "kind": "androidpublisher#productPurchase",
 "purchaseTimeMillis": "1421676237413",
 "purchaseState": 0,
 "consumptionState": 0,
 "developerPayload": "payload that gets stored and returned"
}`

	productsFailure = `{
 "error": {
  "errors": [
   {
    "domain": "androidpublisher",
    "reason": "permissionDenied",
    "message": "The current user has insufficient permissions to perform the requested operation."
   }
  ],
  "code": 401,
  "message": "The current user has insufficient permissions to perform the requested operation."
 }
}`

	productPath = "/androidpublisher/v3/applications/the_package/purchases/products/the_id/tokens/the_token"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func signingKey(t *testing.T) *rsa.PrivateKey {
	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = key
	})
	return testKey
}

func newTestConfig(t *testing.T, tokenURL string, endpoint string) *ClientConfig {
	return &ClientConfig{
		ApplicationName:    "demo_app",
		ApplicationVersion: "1.0",
		Issuer:             testIssuer,
		SigningKey:         signingKey(t),
		TokenURL:           tokenURL,
		Endpoint:           endpoint,
	}
}

func newTokenServer(t *testing.T, status int, body string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newAPIServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

// newBootedClient boots a client against a token stub and the given publisher API stub
func newBootedClient(t *testing.T, handler http.HandlerFunc) *Client {
	tokenServer := newTokenServer(t, http.StatusOK, authSuccess)
	apiServer := newAPIServer(t, handler)

	client, err := NewClient(newTestConfig(t, tokenServer.URL+"/o/oauth2/token", apiServer.URL+"/"))
	require.NoError(t, err)
	require.NoError(t, client.Boot(contextForTest(t)))
	return client
}

func decodeJSON(t *testing.T, body string) map[string]interface{} {
	var object map[string]interface{}
	decoder := json.NewDecoder(strings.NewReader(body))
	decoder.UseNumber()
	require.NoError(t, decoder.Decode(&object))
	return object
}

func contextForTest(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
