package routers

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitbucket.org/calmisland/playstore-verifier/internal/config"
	"bitbucket.org/calmisland/playstore-verifier/internal/global"
	services "bitbucket.org/calmisland/playstore-verifier/internal/services/v1"
	"bitbucket.org/calmisland/playstore-verifier/pkg/iap"
	"bitbucket.org/calmisland/playstore-verifier/pkg/playstore"
	"github.com/Jeffail/gabs/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	productsSuccess = `{"kind":"androidpublisher#productPurchase","purchaseState":0,"consumptionState":0,"developerPayload":"payload that gets stored and returned","purchaseTimeMillis":"1421676237413"}`
	productsFailure = `{"error":{"errors":[{"domain":"androidpublisher","reason":"permissionDenied","message":"The current user has insufficient permissions to perform the requested operation."}],"code":401,"message":"The current user has insufficient permissions to perform the requested operation."}}`

	testReceipt = `{"orderId":"GPA.1234-5678-9012-34567","packageName":"com.calmid.learnandplay.launcher","productId":"com.calmid.badanamu.esl.premium","purchaseTime":1600760196200,"purchaseState":0,"purchaseToken":"the_token"}`
)

type testServer struct {
	echo       *echo.Echo
	apiServer  *httptest.Server
	receiptKey *rsa.PrivateKey
}

func newTestServer(t *testing.T, api http.HandlerFunc) *testServer {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"ya29.token","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(tokenServer.Close)
	apiServer := httptest.NewServer(api)
	t.Cleanup(apiServer.Close)

	signingKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Stage = "test"
	cfg.PlayStore.ApplicationName = "demo_app"
	cfg.PlayStore.ApplicationVersion = "1.0"

	client, err := playstore.NewClient(&playstore.ClientConfig{
		ApplicationName:    cfg.PlayStore.ApplicationName,
		ApplicationVersion: cfg.PlayStore.ApplicationVersion,
		Issuer:             "test_issuer",
		SigningKey:         signingKey,
		TokenURL:           tokenServer.URL,
		Endpoint:           apiServer.URL + "/",
	})
	require.NoError(t, err)
	require.NoError(t, client.Boot(context.Background()))

	receiptKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&receiptKey.PublicKey)
	require.NoError(t, err)

	iapService := iap.NewService()
	require.NoError(t, iapService.Initialize(iap.StaticAndroidSource{
		"com.calmid.learnandplay.launcher": base64.StdEncoding.EncodeToString(der),
	}))

	s := &global.Services{
		Config:                     cfg,
		PlayStoreClient:            client,
		IAPService:                 iapService,
		PaymentSlackMessageService: &services.SlackMessageService{Stage: cfg.Stage},
	}
	require.NoError(t, s.Verify())

	return &testServer{echo: SetupRouter(s), apiServer: apiServer, receiptKey: receiptKey}
}

func (s *testServer) do(t *testing.T, method string, path string, body string) (int, *gabs.Container) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	parsed, err := gabs.ParseJSON(rec.Body.Bytes())
	require.NoError(t, err, rec.Body.String())
	return rec.Code, parsed
}

func (s *testServer) sign(t *testing.T, receipt string) string {
	hashed := sha1.Sum([]byte(receipt))
	signature, err := rsa.SignPKCS1v15(rand.Reader, s.receiptKey, crypto.SHA1, hashed[:])
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(signature)
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestServerInfo(t *testing.T) {
	s := newTestServer(t, respond(http.StatusOK, productsSuccess))

	status, body := s.do(t, http.MethodGet, "/v1/serverinfo", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "demo_app", body.Path("name").Data())
	assert.Equal(t, true, body.Path("booted").Data())
}

func TestVerifyAndroidProduct(t *testing.T) {
	var path string
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		respond(http.StatusOK, productsSuccess)(w, r)
	})

	status, body := s.do(t, http.MethodPost, "/v1/android/product", `{"packageName":"the_package","productId":"the_id","purchaseToken":"the_token"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body.Path("isError").Data())
	assert.Equal(t, "androidpublisher#productPurchase", body.Path("result.kind").Data())
	assert.Equal(t, float64(0), body.Path("result.purchaseState").Data())
	assert.Equal(t, "/androidpublisher/v3/applications/the_package/purchases/products/the_id/tokens/the_token", path)
}

func TestVerifyAndroidProductRejected(t *testing.T) {
	s := newTestServer(t, respond(http.StatusUnauthorized, productsFailure))

	status, body := s.do(t, http.MethodPost, "/v1/android/product", `{"packageName":"the_package","productId":"the_id","purchaseToken":"the_token"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body.Path("isError").Data())
	assert.Equal(t, float64(401), body.Path("result.error.code").Data())
}

func TestVerifyAndroidProductWithoutBody(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	status, body := s.do(t, http.MethodPost, "/v1/android/product", `{"packageName":"the_package","productId":"the_id","purchaseToken":"the_token"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body.Path("isError").Data())

	result, ok := body.Path("result").Data().(map[string]interface{})
	assert.True(t, ok)
	assert.Empty(t, result)
}

func TestVerifyAndroidProductMissingParameter(t *testing.T) {
	s := newTestServer(t, respond(http.StatusOK, productsSuccess))

	status, body := s.do(t, http.MethodPost, "/v1/android/product", `{"packageName":"the_package","purchaseToken":"the_token"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "productId", body.Path("field").Data())

	status, _ = s.do(t, http.MethodPost, "/v1/android/product", `{not json`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestVerifyAndroidProductUnreachable(t *testing.T) {
	s := newTestServer(t, respond(http.StatusOK, productsSuccess))
	s.apiServer.Close()

	status, body := s.do(t, http.MethodPost, "/v1/android/product", `{"packageName":"the_package","productId":"the_id","purchaseToken":"the_token"}`)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "ErrorInternalServer", body.Path("errName").Data())
}

func TestVerifyAndroidSubscription(t *testing.T) {
	var path string
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		respond(http.StatusOK, `{"kind":"androidpublisher#subscriptionPurchase","autoRenewing":true}`)(w, r)
	})

	status, body := s.do(t, http.MethodPost, "/v1/android/subscription", `{"packageName":"the_package","productId":"the_subscription","purchaseToken":"the_token"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body.Path("result.autoRenewing").Data())
	assert.Equal(t, "/androidpublisher/v3/applications/the_package/purchases/subscriptions/the_subscription/tokens/the_token", path)
}

func TestDebugReceiptAndroid(t *testing.T) {
	var path string
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		respond(http.StatusOK, productsSuccess)(w, r)
	})

	reqBody, err := json.Marshal(map[string]string{"receipt": testReceipt, "signature": s.sign(t, testReceipt)})
	require.NoError(t, err)

	status, body := s.do(t, http.MethodPost, "/v1/android/receipt", string(reqBody))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body.Path("isValid").Data())
	assert.Equal(t, "GPA.1234-5678-9012-34567", body.Path("receiptInfo.orderId").Data())
	assert.Equal(t, "payload that gets stored and returned", body.Path("productInfo.developerPayload").Data())
	assert.Equal(t, "/androidpublisher/v3/applications/com.calmid.learnandplay.launcher/purchases/products/com.calmid.badanamu.esl.premium/tokens/the_token", path)
}

func TestDebugReceiptAndroidUnityPayload(t *testing.T) {
	s := newTestServer(t, respond(http.StatusOK, productsSuccess))

	payload, err := json.Marshal(map[string]string{"json": testReceipt, "signature": s.sign(t, testReceipt)})
	require.NoError(t, err)
	reqBody, err := json.Marshal(map[string]string{"payload": string(payload)})
	require.NoError(t, err)

	status, body := s.do(t, http.MethodPost, "/v1/android/receipt", string(reqBody))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body.Path("isValid").Data())
	assert.Equal(t, "androidpublisher#productPurchase", body.Path("productInfo.kind").Data())

	status, body = s.do(t, http.MethodPost, "/v1/android/receipt", `{"payload":"{\"json\":\"\"}"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "payload", body.Path("field").Data())
}

func TestDebugReceiptAndroidInvalidSignature(t *testing.T) {
	var requests int
	s := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		respond(http.StatusOK, productsSuccess)(w, r)
	})

	reqBody, err := json.Marshal(map[string]string{"receipt": testReceipt, "signature": s.sign(t, testReceipt+" ")})
	require.NoError(t, err)

	status, body := s.do(t, http.MethodPost, "/v1/android/receipt", string(reqBody))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body.Path("isValid").Data())
	assert.Zero(t, requests)
}

func TestDebugReceiptAndroidUnsupportedApplication(t *testing.T) {
	s := newTestServer(t, respond(http.StatusOK, productsSuccess))
	receipt := strings.Replace(testReceipt, "com.calmid.learnandplay.launcher", "com.unknown.app", 1)

	reqBody, err := json.Marshal(map[string]string{"receipt": receipt, "signature": s.sign(t, receipt)})
	require.NoError(t, err)

	status, body := s.do(t, http.MethodPost, "/v1/android/receipt", string(reqBody))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ErrorIAPReceiptUnauthorized", body.Path("errName").Data())
}
