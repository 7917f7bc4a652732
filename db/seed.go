package db

import "clearance-server-go/models"

// DefaultDepartments is written the first time the department record is loaded
func DefaultDepartments() []models.Department {
	return []models.Department{
		{ID: 1, Code: "REG", Name: "Registry"},
		{ID: 2, Code: "LIB", Name: "Library"},
		{ID: 3, Code: "ACC", Name: "Accounts"},
		{ID: 4, Code: "ICT", Name: "ICT/Computer Centre"},
		{ID: 5, Code: "DPT", Name: "Department Office"},
	}
}

// DefaultStudents is written the first time the student record is loaded
func DefaultStudents() []models.Student {
	c, p := models.StatusCleared, models.StatusPending
	return []models.Student{
		{
			ID:        "FPB/2024/001",
			Name:      "Amina Yusuf",
			Level:     "ND II",
			Programme: "Computer Science",
			Status:    map[int]models.ClearanceStatus{1: c, 2: c, 3: p, 4: c, 5: c},
		},
		{
			ID:        "FPB/2024/002",
			Name:      "Ibrahim Musa",
			Level:     "HND I",
			Programme: "Mechanical Engineering",
			Status:    map[int]models.ClearanceStatus{1: p, 2: c, 3: c, 4: p, 5: p},
		},
	}
}
