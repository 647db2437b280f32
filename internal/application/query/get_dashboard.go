// Package query contains read operations (CQRS - Queries). Queries are
// pure over the current snapshot: they never mutate state and never
// trigger saves.
package query

import (
	"context"

	"github.com/littlesteps-hub/enrollment-hub/internal/application"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/projection"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD QUERY
// Aggregated headcount, FTE and vacancy statistics per visible class.
// ══════════════════════════════════════════════════════════════════════════════

// GetDashboardQuery requests aggregate statistics.
type GetDashboardQuery struct {
	// ProjectionDate overrides the shared projection date (YYYY-MM-DD);
	// empty uses the shared one.
	ProjectionDate string
}

// GetDashboardResult carries the aggregated dashboard.
type GetDashboardResult struct {
	ProjectionDate string               `json:"projectionDate"`
	Dashboard      projection.Dashboard `json:"dashboard"`
	Revision       uint64               `json:"revision"`
}

// GetDashboardHandler handles the GetDashboardQuery.
type GetDashboardHandler struct {
	state *application.State
}

// NewGetDashboardHandler creates a new GetDashboardHandler.
func NewGetDashboardHandler(state *application.State) *GetDashboardHandler {
	return &GetDashboardHandler{state: state}
}

// Handle executes the query.
func (h *GetDashboardHandler) Handle(ctx context.Context, q GetDashboardQuery) (*GetDashboardResult, error) {
	projDate, err := resolveProjectionDate(h.state, q.ProjectionDate)
	if err != nil {
		return nil, err
	}

	var result *GetDashboardResult
	h.state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		e := projection.NewEngine(snap)
		result = &GetDashboardResult{
			ProjectionDate: projDate.String(),
			Dashboard:      e.Aggregate(snap.Roster, projDate),
			Revision:       snap.Revision,
		}
	})
	return result, nil
}

// resolveProjectionDate picks the override date or the shared one. A
// malformed override is a caller error, not an internal one.
func resolveProjectionDate(state *application.State, override string) (dateutil.Date, error) {
	if override == "" {
		return state.ProjectionDate(), nil
	}
	d, err := dateutil.Parse(override)
	if err != nil {
		return dateutil.Date{}, shared.WrapError("query", "ResolveDate", shared.ErrInvalidFormat,
			"projection date override must be YYYY-MM-DD", err)
	}
	return d, nil
}
