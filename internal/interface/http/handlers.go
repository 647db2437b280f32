package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/littlesteps-hub/enrollment-hub/internal/application/command"
	"github.com/littlesteps-hub/enrollment-hub/internal/application/query"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/catalog"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
	"github.com/littlesteps-hub/enrollment-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS
// ══════════════════════════════════════════════════════════════════════════════

type healthPayload struct {
	Status         string `json:"status"`
	Revision       uint64 `json:"revision"`
	Dirty          bool   `json:"dirty"`
	ProjectionDate string `json:"projectionDate"`
	UptimeSeconds  int64  `json:"uptimeSeconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := healthPayload{
		Status:        "ok",
		UptimeSeconds: int64(s.Uptime().Seconds()),
	}
	if s.deps.State != nil {
		payload.Revision = s.deps.State.Revision()
		payload.Dirty = s.deps.State.Dirty()
		payload.ProjectionDate = s.deps.State.ProjectionDate().String()
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.StorePinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.deps.StorePinger.Ping(ctx); err != nil {
			s.logger.Warn("readiness probe failed", logger.Err(err))
			writeJSONError(w, http.StatusServiceUnavailable, "store_unreachable", "Snapshot store is not reachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Unknown endpoint")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "enrollment-hub",
		"api":     "/api/v1",
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// READ SIDE
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.GetDashboard.Handle(r.Context(), query.GetDashboardQuery{
		ProjectionDate: r.URL.Query().Get("date"),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetRoster(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.GetRoster.Handle(r.Context(), query.GetRosterQuery{
		ProjectionDate: r.URL.Query().Get("date"),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetClassRosters(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.GetClassRosters.Handle(r.Context(), query.GetClassRostersQuery{
		ProjectionDate: r.URL.Query().Get("date"),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.GetStudent.Handle(r.Context(), query.GetStudentQuery{
		ID:             r.PathValue("id"),
		ProjectionDate: r.URL.Query().Get("date"),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFindDuplicates(w http.ResponseWriter, r *http.Request) {
	groups, err := s.deps.FindDuplicates.Handle(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"groups": groups})
}

func (s *Server) handleGetProjectionDate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"projectionDate": s.deps.State.ProjectionDate().String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITE SIDE
// ══════════════════════════════════════════════════════════════════════════════

type newStudentPayload struct {
	Name           string  `json:"name" validate:"required"`
	DOB            string  `json:"dob" validate:"required"`
	EnrollmentDate string  `json:"enrollmentDate"`
	FTE            float64 `json:"fte" validate:"min=0,max=1"`
	IsStaffChild   bool    `json:"isStaffChild"`
}

type addStudentsRequest struct {
	Entries           []newStudentPayload `json:"entries" validate:"dive"`
	BulkText          string              `json:"bulkText"`
	ConfirmDuplicates bool                `json:"confirmDuplicates"`
}

func (s *Server) handleAddStudents(w http.ResponseWriter, r *http.Request) {
	var req addStudentsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	cmd := command.AddStudentsCommand{
		BulkText:          req.BulkText,
		ConfirmDuplicates: req.ConfirmDuplicates,
	}
	for _, e := range req.Entries {
		cmd.Entries = append(cmd.Entries, command.NewStudentEntry{
			Name:           e.Name,
			DOB:            e.DOB,
			EnrollmentDate: e.EnrollmentDate,
			FTE:            e.FTE,
			IsStaffChild:   e.IsStaffChild,
		})
	}

	res, err := s.deps.AddStudents.Handle(r.Context(), cmd)
	if err != nil {
		// Unconfirmed duplicates come back as a conflict carrying the
		// duplicate keys, so the client can re-submit with confirmation.
		if res != nil && res.NeedsConfirmation {
			writeJSON(w, http.StatusConflict, res)
			return
		}
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type editStudentRequest struct {
	Name           *string  `json:"name" validate:"omitempty,min=1"`
	DOB            *string  `json:"dob"`
	EnrollmentDate *string  `json:"enrollmentDate"`
	WithdrawalDate *string  `json:"withdrawalDate"`
	FTE            *float64 `json:"fte" validate:"omitempty,min=0,max=1"`
	Partner        *string  `json:"partner"`
	Comments       *string  `json:"comments"`
	IsStaffChild   *bool    `json:"isStaffChild"`
}

func (s *Server) handleEditStudent(w http.ResponseWriter, r *http.Request) {
	var req editStudentRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	err := s.deps.EditStudent.Handle(r.Context(), command.EditStudentCommand{
		ID:             r.PathValue("id"),
		Name:           req.Name,
		DOB:            req.DOB,
		EnrollmentDate: req.EnrollmentDate,
		WithdrawalDate: req.WithdrawalDate,
		FTE:            req.FTE,
		Partner:        req.Partner,
		Comments:       req.Comments,
		IsStaffChild:   req.IsStaffChild,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type deleteStudentsRequest struct {
	IDs []string `json:"ids"`
	All bool     `json:"all"`
}

func (s *Server) handleDeleteStudents(w http.ResponseWriter, r *http.Request) {
	var req deleteStudentsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	res, err := s.deps.DeleteStudents.Handle(r.Context(), command.DeleteStudentsCommand{
		IDs: req.IDs,
		All: req.All,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type reassignRequest struct {
	StudentIDs       []string `json:"studentIds" validate:"required,min=1"`
	TargetClass      string   `json:"targetClass" validate:"required"`
	Section          string   `json:"section" validate:"required,oneof=enrolled waitlisted subdivision"`
	SubdivisionIndex int      `json:"subdivisionIndex" validate:"min=0"`
	FromTerminal     bool     `json:"fromTerminal"`
}

func (s *Server) handleReassign(w http.ResponseWriter, r *http.Request) {
	var req reassignRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	err := s.deps.ReassignStudent.Handle(r.Context(), command.ReassignStudentCommand{
		StudentIDs:       req.StudentIDs,
		TargetClass:      req.TargetClass,
		Section:          req.Section,
		SubdivisionIndex: req.SubdivisionIndex,
		FromTerminal:     req.FromTerminal,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reassigned"})
}

type transitionDateRequest struct {
	// Date pins the transition (YYYY-MM-DD); empty clears the pin.
	Date string `json:"date"`
}

func (s *Server) handleSetTransitionDate(w http.ResponseWriter, r *http.Request) {
	var req transitionDateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	err := s.deps.SetTransitionDate.Handle(r.Context(), command.SetTransitionDateCommand{
		StudentID: r.PathValue("id"),
		Date:      req.Date,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type relationshipsRequest struct {
	// PeerIDs is the new clique; empty detaches the student.
	PeerIDs []string `json:"peerIds"`
	Type    string   `json:"type" validate:"omitempty,oneof=S F"`
}

func (s *Server) handleLinkRelationship(w http.ResponseWriter, r *http.Request) {
	var req relationshipsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	err := s.deps.LinkRelationship.Handle(r.Context(), command.LinkRelationshipCommand{
		StudentID: r.PathValue("id"),
		PeerIDs:   req.PeerIDs,
		Type:      req.Type,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "linked"})
}

type readinessRequest struct {
	Ready bool `json:"ready"`
}

func (s *Server) handleMarkReadiness(w http.ResponseWriter, r *http.Request) {
	var req readinessRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	err := s.deps.MarkReadiness.Handle(r.Context(), command.MarkReadinessCommand{
		StudentID: r.PathValue("id"),
		Ready:     req.Ready,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type classSettingsRequest struct {
	Classes []catalog.ClassBand `json:"classes" validate:"required,min=1"`
}

func (s *Server) handleUpdateClassSettings(w http.ResponseWriter, r *http.Request) {
	var req classSettingsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	err := s.deps.UpdateClassSetting.Handle(r.Context(), command.UpdateClassSettingsCommand{
		Classes: req.Classes,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type classOrderRequest struct {
	OrderedNames []string `json:"orderedNames" validate:"required,min=1"`
}

func (s *Server) handleReorderClasses(w http.ResponseWriter, r *http.Request) {
	var req classOrderRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	err := s.deps.ReorderClasses.Handle(r.Context(), command.ReorderClassesCommand{
		OrderedNames: req.OrderedNames,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
}

type dateVisibilityRequest struct {
	ClassName string `json:"className" validate:"required"`
	Visible   bool   `json:"visible"`
}

func (s *Server) handleSetDateVisibility(w http.ResponseWriter, r *http.Request) {
	var req dateVisibilityRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	err := s.deps.SetDateVisibility.Handle(r.Context(), command.SetDateVisibilityCommand{
		ClassName: req.ClassName,
		Visible:   req.Visible,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type columnOrderRequest struct {
	Table   string   `json:"table" validate:"required"`
	Columns []string `json:"columns" validate:"required,min=1"`
}

func (s *Server) handleSetColumnOrder(w http.ResponseWriter, r *http.Request) {
	var req columnOrderRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	err := s.deps.SetColumnOrder.Handle(r.Context(), command.SetColumnOrderCommand{
		Table:   req.Table,
		Columns: req.Columns,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type projectionDateRequest struct {
	Date string `json:"date" validate:"required"`
}

func (s *Server) handleSetProjectionDate(w http.ResponseWriter, r *http.Request) {
	var req projectionDateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	d, err := dateutil.Parse(req.Date)
	if err != nil || d.IsZero() {
		writeJSONError(w, http.StatusBadRequest, "invalid_date", "Date must be YYYY-MM-DD")
		return
	}

	if err := s.deps.State.SetProjectionDate(r.Context(), d); err != nil {
		// The in-memory value moved; report the persistence failure.
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"projectionDate": d.String()})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DECODING & ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSON decodes and validates the request body. Writes the error
// response and returns false when the body is unusable.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dest); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON: "+err.Error())
		return false
	}

	if err := s.validate.Struct(dest); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}

	return true
}

// respondError maps domain errors to HTTP status codes.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *shared.DomainError
	code := "internal_error"
	if errors.As(err, &domainErr) {
		code = domainErr.Domain + "_" + domainErr.Op
	}

	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, code, err.Error())
	case errors.Is(err, shared.ErrAlreadyExists):
		writeJSONError(w, http.StatusConflict, code, err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, code, err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		writeJSONError(w, http.StatusUnprocessableEntity, code, err.Error())
	case shared.IsPersistence(err):
		s.logger.Error("persistence failure", logger.Err(err), logger.String("request_id", getRequestID(r.Context())))
		writeJSONError(w, http.StatusServiceUnavailable, code, "Persistence layer unavailable")
	default:
		s.logger.Error("unhandled error", logger.Err(err), logger.String("request_id", getRequestID(r.Context())))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
