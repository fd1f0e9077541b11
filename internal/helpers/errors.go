package helpers

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type errorResponseBody struct {
	ErrCode int    `json:"errCode"`
	ErrName string `json:"errName"`
	Field   string `json:"field,omitempty"`
}

// SetClientError answers a 400 naming the offending field
func SetClientError(c echo.Context, errName string, field string) error {
	return c.JSON(http.StatusBadRequest, &errorResponseBody{
		ErrCode: http.StatusBadRequest,
		ErrName: errName,
		Field:   field,
	})
}

// HandleInternalError reports err to Sentry and answers a 500
func HandleInternalError(c echo.Context, err error) error {
	log.WithFields(log.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}).WithError(err).Error("Internal error")

	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	} else {
		sentry.CaptureException(err)
	}

	return c.JSON(http.StatusInternalServerError, &errorResponseBody{
		ErrCode: http.StatusInternalServerError,
		ErrName: "ErrorInternalServer",
	})
}
