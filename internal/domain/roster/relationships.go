package roster

import (
	"sort"

	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
)

// LinkType distinguishes sibling from friend relationships.
type LinkType string

const (
	LinkSibling LinkType = "S"
	LinkFriend  LinkType = "F"
)

// IsValid checks that the link type is one of the known codes.
func (t LinkType) IsValid() bool {
	return t == LinkSibling || t == LinkFriend
}

// Link is one directed edge of the relationship graph. Edges are always
// stored in symmetric pairs.
type Link struct {
	PeerID string   `json:"id"`
	Type   LinkType `json:"type"`
}

// Graph maps a student ID to their relationship links. The graph is a
// union of disjoint cliques: every member of a group is linked to every
// other member, all with the same type.
type Graph map[string][]Link

// Peers returns the peer IDs linked to the given student.
func (g Graph) Peers(studentID string) []string {
	links := g[studentID]
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.PeerID)
	}
	return out
}

// LinkGroup rebuilds the relationship group around actorID. The actor's
// previous group is dissolved first: every student touched by the edit
// (the actor, the selected peers, and the actor's old peers) loses any
// links into the touched set. The new group is the actor plus peerIDs;
// when it has at least two members, every member is linked to every
// other member with the given type. Passing no peers therefore just
// detaches the actor.
func (g Graph) LinkGroup(actorID string, peerIDs []string, typ LinkType) error {
	if !typ.IsValid() {
		return shared.NewDomainError("roster", "Link", shared.ErrInvalidInput, "unknown relationship type")
	}
	touched := map[string]struct{}{actorID: {}}
	for _, id := range peerIDs {
		if id == actorID {
			return shared.ErrSelfLink
		}
		touched[id] = struct{}{}
	}
	for _, l := range g[actorID] {
		touched[l.PeerID] = struct{}{}
	}

	for id := range touched {
		kept := g[id][:0]
		for _, l := range g[id] {
			if _, in := touched[l.PeerID]; !in {
				kept = append(kept, l)
			}
		}
		if len(kept) == 0 {
			delete(g, id)
		} else {
			g[id] = kept
		}
	}

	group := append([]string{actorID}, peerIDs...)
	if len(group) < 2 {
		return nil
	}
	for _, id := range group {
		for _, peer := range group {
			if peer != id {
				g[id] = append(g[id], Link{PeerID: peer, Type: typ})
			}
		}
	}
	return nil
}

// RemoveStudent detaches a deleted student from the graph: each peer's
// link back to the student is dropped (empty lists are removed), then
// the student's own entry is deleted.
func (g Graph) RemoveStudent(studentID string) {
	for _, l := range g[studentID] {
		kept := g[l.PeerID][:0]
		for _, pl := range g[l.PeerID] {
			if pl.PeerID != studentID {
				kept = append(kept, pl)
			}
		}
		if len(kept) == 0 {
			delete(g, l.PeerID)
		} else {
			g[l.PeerID] = kept
		}
	}
	delete(g, studentID)
}

// Symmetric reports whether every edge has a matching reverse edge of
// the same type. Used by snapshot normalization to detect corruption.
func (g Graph) Symmetric() bool {
	for id, links := range g {
		for _, l := range links {
			found := false
			for _, back := range g[l.PeerID] {
				if back.PeerID == id && back.Type == l.Type {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// Group returns the sorted member IDs of the student's relationship
// group, including the student, or nil when the student is unlinked.
func (g Graph) Group(studentID string) []string {
	links := g[studentID]
	if len(links) == 0 {
		return nil
	}
	out := make([]string, 0, len(links)+1)
	out = append(out, studentID)
	for _, l := range links {
		out = append(out, l.PeerID)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	clone := make(Graph, len(g))
	for id, links := range g {
		clone[id] = append([]Link(nil), links...)
	}
	return clone
}
