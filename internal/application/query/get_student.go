package query

import (
	"context"

	"github.com/littlesteps-hub/enrollment-hub/internal/application"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/projection"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/roster"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT QUERY
// ══════════════════════════════════════════════════════════════════════════════

// RelatedStudent is one relationship edge with the peer resolved.
type RelatedStudent struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	CurrentClass string `json:"currentClass"`
}

// GetStudentQuery requests one student's full detail.
type GetStudentQuery struct {
	// ID of the student.
	ID string

	// ProjectionDate overrides the shared projection date (optional).
	ProjectionDate string
}

// GetStudentResult carries the student plus their projection detail.
type GetStudentResult struct {
	StudentRow

	// ManualTransition is the pinned transition date ("" when none).
	ManualTransition string `json:"manualTransition"`

	// Subdivision is the pinned sub-group (nil when none).
	Subdivision *snapshot.SubdivisionSlot `json:"subdivision,omitempty"`

	// Related are the student's relationship peers.
	Related []RelatedStudent `json:"related,omitempty"`
}

// GetStudentHandler handles the GetStudentQuery.
type GetStudentHandler struct {
	state *application.State
}

// NewGetStudentHandler creates a new GetStudentHandler.
func NewGetStudentHandler(state *application.State) *GetStudentHandler {
	return &GetStudentHandler{state: state}
}

// Handle executes the query.
func (h *GetStudentHandler) Handle(ctx context.Context, q GetStudentQuery) (*GetStudentResult, error) {
	if q.ID == "" {
		return nil, shared.NewDomainError("roster", "GetStudent", shared.ErrInvalidID, "student id is required")
	}
	projDate, err := resolveProjectionDate(h.state, q.ProjectionDate)
	if err != nil {
		return nil, err
	}

	var result *GetStudentResult
	var notFound bool
	h.state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		st, ok := snap.FindStudent(q.ID)
		if !ok {
			notFound = true
			return
		}
		e := projection.NewEngine(snap)
		result = &GetStudentResult{StudentRow: buildRow(snap, e, st, projDate)}

		if d, ok := snap.ManualTransitions[q.ID]; ok {
			result.ManualTransition = d.String()
		}
		if slot, ok := snap.Subdivisions[q.ID]; ok {
			result.Subdivision = &slot
		}
		for _, link := range snap.Relationships[q.ID] {
			peer, ok := snap.FindStudent(link.PeerID)
			if !ok {
				continue
			}
			result.Related = append(result.Related, RelatedStudent{
				ID:           peer.ID,
				Name:         peer.Name,
				Type:         string(link.Type),
				CurrentClass: e.Resolve(peer, projDate),
			})
		}
	})
	if notFound {
		return nil, shared.ErrStudentNotFound
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FIND DUPLICATES QUERY
// ══════════════════════════════════════════════════════════════════════════════

// DuplicateGroup is a set of roster entries sharing a name+dob key.
type DuplicateGroup struct {
	Key      string           `json:"key"`
	Students []roster.Student `json:"students"`
}

// FindDuplicatesHandler lists groups of exact name+dob duplicates
// already present on the roster.
type FindDuplicatesHandler struct {
	state *application.State
}

// NewFindDuplicatesHandler creates a new FindDuplicatesHandler.
func NewFindDuplicatesHandler(state *application.State) *FindDuplicatesHandler {
	return &FindDuplicatesHandler{state: state}
}

// Handle executes the query.
func (h *FindDuplicatesHandler) Handle(ctx context.Context) ([]DuplicateGroup, error) {
	var groups []DuplicateGroup
	h.state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		byKey := make(map[string][]roster.Student)
		var order []string
		for i := range snap.Roster {
			key := snap.Roster[i].DedupKey()
			if _, seen := byKey[key]; !seen {
				order = append(order, key)
			}
			byKey[key] = append(byKey[key], snap.Roster[i])
		}
		for _, key := range order {
			if len(byKey[key]) > 1 {
				groups = append(groups, DuplicateGroup{Key: key, Students: byKey[key]})
			}
		}
	})
	return groups, nil
}
