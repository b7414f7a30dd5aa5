package server

import (
	"github.com/paulgirard/ricardo-gph-analysis/internal/server/middleware"
	"github.com/paulgirard/ricardo-gph-analysis/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo, app *middleware.App) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	if app.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(app.Metrics))
	}

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Year routes
	apiRoutes.GET("/years", routes.GetYearsHandler, middleware.RequirePermission(middleware.ViewYears))
	apiRoutes.GET("/years/:year/snapshot", routes.GetSnapshotHandler, middleware.RequirePermission(middleware.ViewSnapshots))
	apiRoutes.GET("/years/:year/stats", routes.GetYearStatsHandler, middleware.RequirePermission(middleware.ViewSnapshots))

	// Job routes
	apiRoutes.POST("/jobs", routes.CreateJobsHandler, middleware.RequirePermission(middleware.CreateJobs))
}
