package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ClearanceStatus is the mark a department (or the admin) puts on a student
type ClearanceStatus string

const (
	StatusCleared ClearanceStatus = "Cleared"
	StatusPending ClearanceStatus = "Pending"
)

// ParseClearanceStatus accepts only "Cleared" or "Pending"
func ParseClearanceStatus(s string) (ClearanceStatus, error) {
	switch ClearanceStatus(s) {
	case StatusCleared, StatusPending:
		return ClearanceStatus(s), nil
	}
	return "", fmt.Errorf("invalid clearance status %q", s)
}

// Department represents a clearing unit (Registry, Library, ...)
type Department struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Student represents a student going through clearance
type Student struct {
	ID          string                  `json:"id"` // Matriculation number, e.g. FPB/2024/001
	Name        string                  `json:"name"`
	Level       string                  `json:"level"`
	Programme   string                  `json:"programme"`
	Status      map[int]ClearanceStatus `json:"status"`      // Department ID -> status
	FinalStatus *ClearanceStatus        `json:"finalStatus"` // nil until the admin declares
}

// Clone returns a deep copy so callers can't mutate shared state
func (s Student) Clone() Student {
	out := s
	out.Status = make(map[int]ClearanceStatus, len(s.Status))
	for k, v := range s.Status {
		out.Status[k] = v
	}
	if s.FinalStatus != nil {
		fs := *s.FinalStatus
		out.FinalStatus = &fs
	}
	return out
}

// Cleared returns a pointer suitable for Student.FinalStatus
func Cleared() *ClearanceStatus {
	s := StatusCleared
	return &s
}

// ActorKind is the self-selected "acting as" role
type ActorKind string

const (
	ActorGuest      ActorKind = "guest"
	ActorAdmin      ActorKind = "admin"
	ActorDepartment ActorKind = "department"
)

// Actor is who the user claims to act as. It only decides which controls are
// enabled in the UI; nothing checks it on the write path.
type Actor struct {
	Kind         ActorKind `json:"type"`
	DepartmentID int       `json:"id,omitempty"`
	Label        string    `json:"label"`
}

// Guest is the default actor
var Guest = Actor{Kind: ActorGuest, Label: "Guest"}

// ParseActor decodes the selector value: "admin", "guest" or "dept|<id>".
// Unknown department ids fall back to Guest.
func ParseActor(value string, departments []Department) Actor {
	switch value {
	case "admin":
		return Actor{Kind: ActorAdmin, Label: "Admin"}
	case "", "guest":
		return Guest
	}
	parts := strings.SplitN(value, "|", 2)
	if len(parts) != 2 || parts[0] != "dept" {
		return Guest
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		return Guest
	}
	for _, d := range departments {
		if d.ID == id {
			return Actor{Kind: ActorDepartment, DepartmentID: d.ID, Label: d.Name}
		}
	}
	return Guest
}

// Value is the inverse of ParseActor
func (a Actor) Value() string {
	if a.Kind == ActorDepartment {
		return "dept|" + strconv.Itoa(a.DepartmentID)
	}
	return string(a.Kind)
}

// CanMark reports whether the department row's buttons should be active
func (a Actor) CanMark(deptID int) bool {
	return a.Kind == ActorAdmin || (a.Kind == ActorDepartment && a.DepartmentID == deptID)
}

// CanDeclare reports whether the final clearance button should be active
func (a Actor) CanDeclare() bool {
	return a.Kind == ActorAdmin
}
