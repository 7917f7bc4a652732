package clearance

import "errors"

var (
	// ErrValidation: matric number or name missing on add
	ErrValidation = errors.New("matric and name required")
	// ErrStudentExists: the matriculation number is already registered
	ErrStudentExists = errors.New("a student with this matric number already exists")
	// ErrStudentNotFound: no student with that matriculation number
	ErrStudentNotFound = errors.New("student not found")
	// ErrUnknownDepartment: the department id isn't one of the configured departments
	ErrUnknownDepartment = errors.New("unknown department")
	// ErrInvalidStatus: status other than Cleared or Pending
	ErrInvalidStatus = errors.New("status must be Cleared or Pending")
	// ErrNotAllCleared: admin declaration attempted before every department cleared
	ErrNotAllCleared = errors.New("not all departments are cleared")
)
