package routes

import (
	"net/http"

	"github.com/paulgirard/ricardo-gph-analysis/internal/queue"
	"github.com/paulgirard/ricardo-gph-analysis/internal/server/middleware"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CreateJobsHandler cuts a year range into batches and queues one job per
// batch.
func CreateJobsHandler(c echo.Context) error {
	type createJobsBody struct {
		From      int `json:"from" validate:"required,min=1"`
		To        int `json:"to" validate:"required,gtefield=From"`
		BatchSize int `json:"batch_size" validate:"omitempty,min=1"`
	}

	type createJobsResponse struct {
		Message string      `json:"message"`
		Jobs    []queue.Job `json:"jobs,omitempty"`
	}

	data := new(createJobsBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createJobsResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createJobsResponse{Message: "Invalid request body"})
	}
	if data.BatchSize == 0 {
		data.BatchSize = 10
	}

	app := c.(*middleware.AppContext).App
	if app.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, createJobsResponse{Message: "Queue is not configured"})
	}

	jobs, err := queue.Batches(data.From, data.To, data.BatchSize)
	if err != nil {
		return c.JSON(http.StatusBadRequest, createJobsResponse{Message: err.Error()})
	}
	if err := queue.PublishJobs(app.Queue, queue.ResolveQueue, jobs); err != nil {
		logger.Error("[Server] Failed to publish jobs", "from", data.From, "to", data.To, "err", err)
		return c.JSON(http.StatusInternalServerError, createJobsResponse{Message: "Internal server error"})
	}

	user := c.(*middleware.AppContext).User
	logger.Info("[Server] Jobs queued", "by", user.Subject, "from", data.From, "to", data.To, "jobs", len(jobs))
	return c.JSON(http.StatusAccepted, createJobsResponse{Message: "Jobs queued", Jobs: jobs})
}
