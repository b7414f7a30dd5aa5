package timing

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/paulgirard/ricardo-gph-analysis/pkg/logger"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/tradegraph"
)

const (
	PhaseBuild   = "build"
	PhaseResolve = "resolve"
)

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Recorder stores how long each year took per phase in year_timings.
type Recorder struct {
	conn    dbConn
	timeout time.Duration
}

func NewRecorder(conn dbConn) *Recorder {
	return &Recorder{conn: conn, timeout: 5 * time.Second}
}

func (r *Recorder) AddYearTime(ctx context.Context, year int, phase string, took time.Duration) error {
	_, err := r.conn.Exec(ctx, addYearTimeSQL, year, phase, took.Milliseconds())
	return err
}

// PredictBatchDuration estimates how long a batch of years takes in phase,
// from the mean of the latest recorded timings. Without history it returns
// zero.
func (r *Recorder) PredictBatchDuration(ctx context.Context, phase string, years int) (time.Duration, error) {
	var meanMs float64
	if err := r.conn.QueryRow(ctx, predictSQL, phase).Scan(&meanMs); err != nil {
		return 0, err
	}
	return time.Duration(meanMs*float64(years)) * time.Millisecond, nil
}

func (r *Recorder) YearBuilt(stats tradegraph.Stats, took time.Duration) {
	r.record(stats.Year, PhaseBuild, took)
}

func (r *Recorder) YearResolved(stats tradegraph.Stats, took time.Duration) {
	r.record(stats.Year, PhaseResolve, took)
}

func (r *Recorder) YearFailed(int, string, error) {}

func (r *Recorder) record(year int, phase string, took time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.AddYearTime(ctx, year, phase, took); err != nil {
		logger.Warn("[Timing] Failed to record year time", "year", year, "phase", phase, "err", err)
	}
}

var _ tradegraph.Observer = (*Recorder)(nil)

const addYearTimeSQL = `
INSERT INTO year_timings (year, phase, duration_ms)
VALUES ($1, $2, $3);
`

const predictSQL = `
SELECT COALESCE(AVG(duration_ms), 0)::float8
FROM (
    SELECT duration_ms FROM year_timings
    WHERE phase = $1
    ORDER BY created_at DESC
    LIMIT 200
) latest;
`
