package v1

import (
	"context"
	"net/http"
	"strings"

	"bitbucket.org/calmisland/playstore-verifier/internal/helpers"
	"bitbucket.org/calmisland/playstore-verifier/pkg/playstore"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type verifyAndroidRequestBody struct {
	PackageName   string `json:"packageName"`
	ProductID     string `json:"productId"`
	PurchaseToken string `json:"purchaseToken"`
}

type verifyAndroidResponseBody struct {
	IsError bool             `json:"isError"`
	Result  playstore.Result `json:"result"`
}

type lookupFunc func(ctx context.Context, packageName string, productID string, token string) (playstore.Result, error)

// VerifyAndroidProduct returns the product purchase of a purchase token
func (controller *Controller) VerifyAndroidProduct(c echo.Context) error {
	return controller.verifyAndroid(c, "product", controller.Services.PlayStoreClient.Verify)
}

// VerifyAndroidSubscription returns the subscription purchase of a purchase token
func (controller *Controller) VerifyAndroidSubscription(c echo.Context) error {
	return controller.verifyAndroid(c, "subscription", controller.Services.PlayStoreClient.VerifySubscription)
}

func (controller *Controller) verifyAndroid(c echo.Context, kind string, lookup lookupFunc) error {
	reqBody := new(verifyAndroidRequestBody)
	if err := c.Bind(reqBody); err != nil {
		return helpers.SetClientError(c, "ErrorBadRequestBody", "")
	}

	packageName := strings.TrimSpace(reqBody.PackageName)
	productID := strings.TrimSpace(reqBody.ProductID)
	purchaseToken := strings.TrimSpace(reqBody.PurchaseToken)

	if len(packageName) == 0 {
		return helpers.SetClientError(c, "ErrorInvalidParameters", "packageName")
	}

	if len(productID) == 0 {
		return helpers.SetClientError(c, "ErrorInvalidParameters", "productId")
	}

	if len(purchaseToken) == 0 {
		return helpers.SetClientError(c, "ErrorInvalidParameters", "purchaseToken")
	}

	contextLogger := log.WithFields(log.Fields{
		"paymentMethod": "InApp: googlePlay " + kind,
		"packageName":   packageName,
		"productID":     productID,
	})

	result, err := lookup(c.Request().Context(), packageName, productID, purchaseToken)
	if err != nil {
		return helpers.HandleInternalError(c, err)
	}

	if result.IsError() {
		code, _ := result.ErrorCode()
		helpers.LogFormat(controller.Services.PaymentSlackMessageService, contextLogger,
			"[IAPVERIFY] Google Play rejected the %s lookup (%d): %s", kind, code, result.ErrorMessage())
	} else if result.IsEmpty() {
		helpers.LogFormat(controller.Services.PaymentSlackMessageService, contextLogger,
			"[IAPVERIFY] Google Play %s lookup failed without details", kind)
	}

	return c.JSON(http.StatusOK, &verifyAndroidResponseBody{
		IsError: result.IsError() || result.IsEmpty(),
		Result:  result,
	})
}
