package v1

import (
	"errors"
	"net/http"
	"strings"

	"bitbucket.org/calmisland/playstore-verifier/internal/helpers"
	"bitbucket.org/calmisland/playstore-verifier/pkg/iap"
	"bitbucket.org/calmisland/playstore-verifier/pkg/playstore"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type debugReceiptAndroidRequestBody struct {
	Receipt   string `json:"receipt"`
	Signature string `json:"signature"`
	// Payload is the Unity IAP {json, signature} payload, used when Receipt is empty
	Payload string `json:"payload"`
}

type debugReceiptAndroidResponseBody struct {
	IsValid     bool                      `json:"isValid"`
	ReceiptInfo *iap.PlayStoreReceiptJSON `json:"receiptInfo"`
	ProductInfo playstore.Result          `json:"productInfo"`
}

// DebugReceiptAndroid checks the signature of a client receipt and looks its purchase up
func (controller *Controller) DebugReceiptAndroid(c echo.Context) error {
	reqBody := new(debugReceiptAndroidRequestBody)
	if err := c.Bind(reqBody); err != nil {
		return helpers.SetClientError(c, "ErrorBadRequestBody", "")
	}

	if len(strings.TrimSpace(reqBody.Receipt)) == 0 && len(strings.TrimSpace(reqBody.Payload)) > 0 {
		receiptPayload, err := iap.ParseUnityPayload(reqBody.Payload)
		if err != nil {
			return helpers.SetClientError(c, "ErrorIAPInvalidReceiptFormat", "payload")
		}
		reqBody.Receipt = receiptPayload.JSON
		reqBody.Signature = receiptPayload.Signature
	}

	receipt := strings.TrimSpace(reqBody.Receipt)
	signature := strings.TrimSpace(reqBody.Signature)

	if len(receipt) == 0 {
		return helpers.SetClientError(c, "ErrorInvalidParameters", "receipt")
	}

	if len(signature) == 0 {
		return helpers.SetClientError(c, "ErrorInvalidParameters", "signature")
	}

	objReceipt, isValid, err := controller.Services.IAPService.VerifyReceipt(reqBody.Receipt, signature)
	switch {
	case errors.Is(err, iap.ErrMalformedReceipt):
		return helpers.SetClientError(c, "ErrorIAPInvalidReceiptFormat", "receipt")
	case errors.Is(err, iap.ErrUnsupportedApplication):
		helpers.LogFormat(controller.Services.PaymentSlackMessageService, log.WithField("packageName", objReceipt.PackageName),
			"Failed to verify Google Play Store receipt for unsupported application: %s", objReceipt.PackageName)
		return helpers.SetClientError(c, "ErrorIAPReceiptUnauthorized", "receipt")
	case err != nil:
		return helpers.HandleInternalError(c, err)
	}

	respBody := &debugReceiptAndroidResponseBody{
		IsValid:     isValid,
		ReceiptInfo: objReceipt,
	}

	if isValid {
		respBody.ProductInfo, err = controller.Services.PlayStoreClient.Verify(c.Request().Context(), objReceipt.PackageName, objReceipt.ProductID, objReceipt.PurchaseToken)
		if err != nil {
			return helpers.HandleInternalError(c, err)
		}
	}

	return c.JSON(http.StatusOK, respBody)
}
