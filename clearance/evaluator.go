// Package clearance holds the clearance rules and the service that owns the
// canonical department and student collections.
package clearance

import "clearance-server-go/models"

// State is a student's aggregate position in the clearance process
type State int

const (
	StatePending State = iota
	StateAllDeptsClearedPendingAdmin
	StateFinalCleared
)

func (s State) String() string {
	switch s {
	case StateAllDeptsClearedPendingAdmin:
		return "AllDeptsClearedPendingAdmin"
	case StateFinalCleared:
		return "FinalCleared"
	default:
		return "Pending"
	}
}

// StatusFor returns the department's mark, Pending when the department never marked
func StatusFor(s models.Student, deptID int) models.ClearanceStatus {
	if st, ok := s.Status[deptID]; ok && st != "" {
		return st
	}
	return models.StatusPending
}

// AllCleared reports whether every known department marked the student Cleared.
// An empty department list never counts as cleared.
func AllCleared(s models.Student, departments []models.Department) bool {
	if len(departments) == 0 {
		return false
	}
	for _, d := range departments {
		if s.Status[d.ID] != models.StatusCleared {
			return false
		}
	}
	return true
}

// Evaluate computes the student's state
func Evaluate(s models.Student, departments []models.Department) State {
	if s.FinalStatus != nil && *s.FinalStatus == models.StatusCleared {
		return StateFinalCleared
	}
	if AllCleared(s, departments) {
		return StateAllDeptsClearedPendingAdmin
	}
	return StatePending
}

// DisplayStatus is the one-word status shown in the dashboard and student list
func DisplayStatus(state State) models.ClearanceStatus {
	if state == StatePending {
		return models.StatusPending
	}
	return models.StatusCleared
}

// OverallLabel is the status shown on the student detail page
func OverallLabel(state State) string {
	switch state {
	case StateFinalCleared:
		return string(models.StatusCleared)
	case StateAllDeptsClearedPendingAdmin:
		return "All departments cleared — pending admin"
	default:
		return string(models.StatusPending)
	}
}
