package routers

import (
	apiControllerV1 "bitbucket.org/calmisland/playstore-verifier/internal/controllers/v1"
	"bitbucket.org/calmisland/playstore-verifier/internal/global"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupRouter is ...
func SetupRouter(services *global.Services) *echo.Echo {
	// Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{}))

	controllerV1 := &apiControllerV1.Controller{Services: services}

	v1 := e.Group("/v1")
	v1.GET("/serverinfo", controllerV1.HandleServerInfo)

	v1android := v1.Group("/android")
	v1android.POST("/product", controllerV1.VerifyAndroidProduct)
	v1android.POST("/subscription", controllerV1.VerifyAndroidSubscription)
	v1android.POST("/receipt", controllerV1.DebugReceiptAndroid)

	return e
}
