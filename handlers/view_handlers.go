package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clearance-server-go/clearance"
	"clearance-server-go/models"
)

type studentRow struct {
	models.Student
	Display models.ClearanceStatus
	Link    string
}

type departmentRow struct {
	models.Department
	Status  models.ClearanceStatus
	CanMark bool
}

func (h *Handler) studentRows() []studentRow {
	departments := h.Service.Departments()
	students := h.Service.Students()
	rows := make([]studentRow, 0, len(students))
	for _, s := range students {
		rows = append(rows, studentRow{
			Student: s,
			Display: clearance.DisplayStatus(clearance.Evaluate(s, departments)),
			Link:    studentPath(s.ID),
		})
	}
	return rows
}

// Dashboard handles GET /
func (h *Handler) Dashboard(c *gin.Context) {
	h.render(c, http.StatusOK, "dashboard.tmpl", gin.H{
		"Title":    "Dashboard",
		"Summary":  h.Service.Summary(),
		"Students": h.studentRows(),
	})
}

// StudentList handles GET /students
func (h *Handler) StudentList(c *gin.Context) {
	h.render(c, http.StatusOK, "students.tmpl", gin.H{
		"Title":    "Students",
		"Students": h.studentRows(),
	})
}

// NewStudentForm handles GET /students/new
func (h *Handler) NewStudentForm(c *gin.Context) {
	h.render(c, http.StatusOK, "student_new.tmpl", gin.H{
		"Title": "Add Student",
		"Form":  clearance.NewStudent{},
	})
}

// CreateStudent handles POST /students from the add form
func (h *Handler) CreateStudent(c *gin.Context) {
	var form clearance.NewStudent
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "student_new.tmpl", gin.H{
			"Title": "Add Student", "Form": form, "Error": "Invalid form submission",
		})
		return
	}

	_, err := h.Service.AddStudent(c.Request.Context(), form)
	switch {
	case err == nil:
		c.Redirect(http.StatusSeeOther, "/students")
	case errors.Is(err, clearance.ErrValidation):
		h.render(c, http.StatusBadRequest, "student_new.tmpl", gin.H{
			"Title": "Add Student", "Form": form, "Error": "Matric and name required",
		})
	case errors.Is(err, clearance.ErrStudentExists):
		h.render(c, http.StatusConflict, "student_new.tmpl", gin.H{
			"Title": "Add Student", "Form": form, "Error": "A student with this matric number already exists",
		})
	default:
		h.Logger.Error("add student failed", zap.String("student", form.ID), zap.Error(err))
		_ = c.Error(err)
		h.render(c, http.StatusInternalServerError, "student_new.tmpl", gin.H{
			"Title": "Add Student", "Form": form, "Error": "Could not save the student",
		})
	}
}

// StudentDetail handles GET /students/:id
func (h *Handler) StudentDetail(c *gin.Context) {
	student, err := h.Service.Student(c.Param("id"))
	if err != nil {
		h.render(c, http.StatusNotFound, "student_missing.tmpl", gin.H{"Title": "Student not found"})
		return
	}

	actor := h.actor(c)
	departments := h.Service.Departments()
	rows := make([]departmentRow, 0, len(departments))
	for _, d := range departments {
		rows = append(rows, departmentRow{
			Department: d,
			Status:     clearance.StatusFor(student, d.ID),
			CanMark:    actor.CanMark(d.ID),
		})
	}
	allCleared := clearance.AllCleared(student, departments)

	h.render(c, http.StatusOK, "student_detail.tmpl", gin.H{
		"Title":      student.Name,
		"Student":    student,
		"Link":       studentPath(student.ID),
		"Overall":    clearance.OverallLabel(clearance.Evaluate(student, departments)),
		"DeptRows":   rows,
		"CanDeclare": allCleared && actor.CanDeclare(),
		"IsAdmin":    actor.Kind == models.ActorAdmin,
	})
}

// MarkDepartment handles POST /students/:id/departments/:deptId
func (h *Handler) MarkDepartment(c *gin.Context) {
	studentID := c.Param("id")
	back := studentPath(studentID)

	deptID, err := strconv.Atoi(c.Param("deptId"))
	if err != nil {
		setFlash(c, "Unknown department")
		c.Redirect(http.StatusSeeOther, back)
		return
	}

	status := models.ClearanceStatus(c.PostForm("status"))
	_, err = h.Service.SetDeptStatus(c.Request.Context(), studentID, deptID, status, h.actor(c))
	switch {
	case err == nil:
		setFlash(c, fmt.Sprintf("Department status updated: %s", status))
	case errors.Is(err, clearance.ErrStudentNotFound):
		h.render(c, http.StatusNotFound, "student_missing.tmpl", gin.H{"Title": "Student not found"})
		return
	case errors.Is(err, clearance.ErrUnknownDepartment):
		setFlash(c, "Unknown department")
	case errors.Is(err, clearance.ErrInvalidStatus):
		setFlash(c, "Status must be Cleared or Pending")
	default:
		h.Logger.Error("department status update failed", zap.String("student", studentID), zap.Error(err))
		_ = c.Error(err)
		setFlash(c, "Could not update the department status")
	}
	c.Redirect(http.StatusSeeOther, back)
}

// DeclareCleared handles POST /students/:id/declare
func (h *Handler) DeclareCleared(c *gin.Context) {
	studentID := c.Param("id")

	_, err := h.Service.AdminDeclare(c.Request.Context(), studentID, h.actor(c))
	switch {
	case err == nil:
		setFlash(c, "Admin declared student fully cleared")
	case errors.Is(err, clearance.ErrStudentNotFound):
		h.render(c, http.StatusNotFound, "student_missing.tmpl", gin.H{"Title": "Student not found"})
		return
	case errors.Is(err, clearance.ErrNotAllCleared):
		setFlash(c, "Not all departments are cleared")
	default:
		h.Logger.Error("final clearance failed", zap.String("student", studentID), zap.Error(err))
		_ = c.Error(err)
		setFlash(c, "Could not declare final clearance")
	}
	c.Redirect(http.StatusSeeOther, studentPath(studentID))
}

// SetActing handles POST /acting from the role selector
func (h *Handler) SetActing(c *gin.Context) {
	actor := models.ParseActor(c.PostForm("acting"), h.Service.Departments())
	c.SetCookie(actingCookie, actor.Value(), 0, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, localPath(c.PostForm("return")))
}
