package middleware

import (
	"context"
	"net/http"

	"github.com/paulgirard/ricardo-gph-analysis/internal/queue"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/tradegraph"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type AppUser struct {
	Subject     string
	Role        string
	Permissions []Permission
}

// YearReader lists the years stored in the database.
type YearReader interface {
	ResolvedYears(ctx context.Context) ([]int, error)
}

// SnapshotReader reads archived year graphs.
type SnapshotReader interface {
	GetSnapshot(ctx context.Context, year int) (*tradegraph.Graph, error)
}

// App holds the dependencies of the handlers. Snapshots and Queue are nil
// when the archive or the broker is not configured.
type App struct {
	Years     YearReader
	Snapshots SnapshotReader
	Queue     queue.Channel
	Metrics   http.Handler

	APIKey  string
	Keyfunc jwt.Keyfunc
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
