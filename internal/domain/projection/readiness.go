package projection

import (
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// PruneStaleReadiness drops readiness flags whose recorded class no
// longer matches the student's resolved class (the student moved on, so
// the flag served its purpose), and flags for students no longer on the
// roster. Returns the IDs whose flags were removed.
func PruneStaleReadiness(snap *snapshot.Snapshot, projection dateutil.Date) []string {
	if len(snap.Readiness) == 0 {
		return nil
	}
	e := NewEngine(snap)
	var removed []string
	for id, r := range snap.Readiness {
		st, ok := snap.FindStudent(id)
		if ok && e.Resolve(st, projection) == r.FromClass {
			continue
		}
		delete(snap.Readiness, id)
		removed = append(removed, id)
	}
	return removed
}
