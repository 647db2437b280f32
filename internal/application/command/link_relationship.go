package command

import (
	"context"

	"github.com/littlesteps-hub/enrollment-hub/internal/application"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/roster"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
)

// ══════════════════════════════════════════════════════════════════════════════
// LINK RELATIONSHIP COMMAND
// Rebuilds a student's sibling/friend group. The previous group is
// dissolved and the new one is fully cross-linked, so the graph stays
// symmetric. An empty peer list detaches the student.
// ══════════════════════════════════════════════════════════════════════════════

// LinkRelationshipCommand links a student with a set of peers.
type LinkRelationshipCommand struct {
	// StudentID is the anchor of the group being edited.
	StudentID string

	// PeerIDs are the other group members.
	PeerIDs []string

	// Type is the relationship type: S (sibling) or F (friend).
	Type string
}

// Validate validates the command.
func (c LinkRelationshipCommand) Validate() error {
	if c.StudentID == "" {
		return shared.NewDomainError("roster", "Link", shared.ErrInvalidID, "student id is required")
	}
	if len(c.PeerIDs) > 0 && !roster.LinkType(c.Type).IsValid() {
		return shared.NewDomainError("roster", "Link", shared.ErrInvalidInput, "unknown relationship type")
	}
	return nil
}

// LinkRelationshipHandler handles the LinkRelationshipCommand.
type LinkRelationshipHandler struct {
	state *application.State
}

// NewLinkRelationshipHandler creates a new LinkRelationshipHandler.
func NewLinkRelationshipHandler(state *application.State) *LinkRelationshipHandler {
	return &LinkRelationshipHandler{state: state}
}

// Handle executes the link relationship command. Every referenced
// student must exist; otherwise nothing changes.
func (h *LinkRelationshipHandler) Handle(ctx context.Context, cmd LinkRelationshipCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	return h.state.Update(func(snap *snapshot.Snapshot) error {
		if _, ok := snap.FindStudent(cmd.StudentID); !ok {
			return shared.ErrStudentNotFound
		}
		for _, id := range cmd.PeerIDs {
			if _, ok := snap.FindStudent(id); !ok {
				return shared.ErrStudentNotFound
			}
		}
		typ := roster.LinkType(cmd.Type)
		if len(cmd.PeerIDs) == 0 {
			typ = roster.LinkSibling
		}
		return snap.Relationships.LinkGroup(cmd.StudentID, cmd.PeerIDs, typ)
	})
}
