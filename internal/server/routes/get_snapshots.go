package routes

import (
	"errors"
	"net/http"

	"github.com/paulgirard/ricardo-gph-analysis/internal/server/middleware"
	"github.com/paulgirard/ricardo-gph-analysis/internal/storage"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/tradegraph"

	"github.com/labstack/echo/v4"
)

type yearParams struct {
	Year int `param:"year" validate:"required,min=1"`
}

// loadSnapshot binds the year parameter and reads its snapshot. On failure
// the response is already written and the graph is nil.
func loadSnapshot(c echo.Context) (*tradegraph.Graph, error) {
	params := new(yearParams)
	if err := c.Bind(params); err != nil {
		return nil, c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return nil, c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	app := c.(*middleware.AppContext).App
	if app.Snapshots == nil {
		return nil, c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Snapshot archive is not configured"})
	}

	g, err := app.Snapshots.GetSnapshot(c.Request().Context(), params.Year)
	if errors.Is(err, storage.ErrSnapshotNotFound) {
		return nil, c.JSON(http.StatusNotFound, map[string]string{"error": "No snapshot for this year"})
	}
	if err != nil {
		logger.Error("[Server] Failed to read snapshot", "year", params.Year, "err", err)
		return nil, c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return g, nil
}

func GetSnapshotHandler(c echo.Context) error {
	g, err := loadSnapshot(c)
	if g == nil {
		return err
	}

	data, err := tradegraph.MarshalSnapshot(g)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	return c.JSONBlob(http.StatusOK, data)
}

func GetYearStatsHandler(c echo.Context) error {
	type getYearStatsResponse struct {
		Year       int            `json:"year"`
		Nodes      map[string]int `json:"nodes"`
		EdgeRoles  map[string]int `json:"edgeRoles"`
		EdgeStatus map[string]int `json:"edgeStatus"`
		Unresolved int            `json:"unresolved"`
	}

	g, err := loadSnapshot(c)
	if g == nil {
		return err
	}

	stats := g.Stats()
	res := getYearStatsResponse{
		Year:       stats.Year,
		Nodes:      make(map[string]int, len(stats.Nodes)),
		EdgeRoles:  make(map[string]int, len(stats.EdgeRoles)),
		EdgeStatus: make(map[string]int, len(stats.EdgeStatus)),
		Unresolved: stats.Unresolved(),
	}
	for t, n := range stats.Nodes {
		res.Nodes[string(t)] = n
	}
	for r, n := range stats.EdgeRoles {
		res.EdgeRoles[r.String()] = n
	}
	for s, n := range stats.EdgeStatus {
		if s == tradegraph.StatusNone {
			continue
		}
		res.EdgeStatus[string(s)] = n
	}
	return c.JSON(http.StatusOK, res)
}
