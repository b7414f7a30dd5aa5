package routes

import (
	"net/http"

	"github.com/paulgirard/ricardo-gph-analysis/internal/server/middleware"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"

	"github.com/labstack/echo/v4"
)

func GetYearsHandler(c echo.Context) error {
	type getYearsResponse struct {
		Years []int `json:"years"`
	}

	app := c.(*middleware.AppContext).App
	years, err := app.Years.ResolvedYears(c.Request().Context())
	if err != nil {
		logger.Error("[Server] Failed to list resolved years", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if years == nil {
		years = []int{}
	}

	return c.JSON(http.StatusOK, getYearsResponse{Years: years})
}
