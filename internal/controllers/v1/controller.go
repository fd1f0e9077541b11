package v1

import (
	"net/http"

	"bitbucket.org/calmisland/playstore-verifier/internal/global"
	"github.com/labstack/echo/v4"
)

// Controller serves the v1 API from the shared services
type Controller struct {
	Services *global.Services
}

type serverInfoResponseBody struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Stage   string `json:"stage"`
	Booted  bool   `json:"booted"`
}

// HandleServerInfo reports which application the server verifies for
func (controller *Controller) HandleServerInfo(c echo.Context) error {
	cfg := controller.Services.Config
	return c.JSON(http.StatusOK, &serverInfoResponseBody{
		Name:    cfg.PlayStore.ApplicationName,
		Version: cfg.PlayStore.ApplicationVersion,
		Stage:   cfg.Stage,
		Booted:  controller.Services.PlayStoreClient.Booted(),
	})
}
