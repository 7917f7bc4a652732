package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clearance-server-go/clearance"
	"clearance-server-go/models"
	"clearance-server-go/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// studentSummary is a student plus its computed status
type studentSummary struct {
	models.Student
	State         string                 `json:"state"`
	DisplayStatus models.ClearanceStatus `json:"displayStatus"`
}

// departmentStatus is one row of the detail view
type departmentStatus struct {
	models.Department
	Status models.ClearanceStatus `json:"clearance"`
}

type studentDetail struct {
	studentSummary
	Overall     string             `json:"overall"`
	AllCleared  bool               `json:"allCleared"`
	Departments []departmentStatus `json:"departments"`
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func summarize(s models.Student, departments []models.Department) studentSummary {
	state := clearance.Evaluate(s, departments)
	return studentSummary{Student: s, State: state.String(), DisplayStatus: clearance.DisplayStatus(state)}
}

func detail(s models.Student, departments []models.Department) studentDetail {
	d := studentDetail{
		studentSummary: summarize(s, departments),
		Overall:        clearance.OverallLabel(clearance.Evaluate(s, departments)),
		AllCleared:     clearance.AllCleared(s, departments),
		Departments:    make([]departmentStatus, 0, len(departments)),
	}
	for _, dept := range departments {
		d.Departments = append(d.Departments, departmentStatus{Department: dept, Status: clearance.StatusFor(s, dept.ID)})
	}
	return d
}

// apiError maps service errors onto HTTP statuses
func (h *Handler) apiError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, clearance.ErrValidation), errors.Is(err, clearance.ErrInvalidStatus):
		fail(c, http.StatusBadRequest, CodeBadRequest, err.Error())
	case errors.Is(err, clearance.ErrStudentNotFound), errors.Is(err, clearance.ErrUnknownDepartment):
		fail(c, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, clearance.ErrNotAllCleared), errors.Is(err, clearance.ErrStudentExists):
		fail(c, http.StatusConflict, CodeConflict, err.Error())
	default:
		h.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}

// GetDepartments handles GET /api/departments
func (h *Handler) GetDepartments(c *gin.Context) {
	ok(c, h.Service.Departments())
}

// GetDashboard handles GET /api/dashboard
func (h *Handler) GetDashboard(c *gin.Context) {
	ok(c, h.Service.Summary())
}

// GetStudents handles GET /api/students
func (h *Handler) GetStudents(c *gin.Context) {
	departments := h.Service.Departments()
	students := h.Service.Students()
	out := make([]studentSummary, 0, len(students))
	for _, s := range students {
		out = append(out, summarize(s, departments))
	}
	ok(c, out)
}

// GetStudent handles GET /api/students/:id
func (h *Handler) GetStudent(c *gin.Context) {
	student, err := h.Service.Student(c.Param("id"))
	if err != nil {
		h.apiError(c, err)
		return
	}
	ok(c, detail(student, h.Service.Departments()))
}

// AddStudent handles POST /api/students
func (h *Handler) AddStudent(c *gin.Context) {
	var req clearance.NewStudent
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	student, err := h.Service.AddStudent(c.Request.Context(), req)
	if err != nil {
		h.apiError(c, err)
		return
	}
	created(c, detail(student, h.Service.Departments()))
}

// SetDepartmentStatus handles PUT /api/students/:id/departments/:deptId
func (h *Handler) SetDepartmentStatus(c *gin.Context) {
	deptID, err := strconv.Atoi(c.Param("deptId"))
	if err != nil {
		fail(c, http.StatusBadRequest, CodeBadRequest, "Department ID must be a number")
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	student, err := h.Service.SetDeptStatus(c.Request.Context(), c.Param("id"), deptID, models.ClearanceStatus(req.Status), h.actor(c))
	if err != nil {
		h.apiError(c, err)
		return
	}
	ok(c, detail(student, h.Service.Departments()))
}

// AdminDeclare handles POST /api/students/:id/declare
func (h *Handler) AdminDeclare(c *gin.Context) {
	student, err := h.Service.AdminDeclare(c.Request.Context(), c.Param("id"), h.actor(c))
	if err != nil {
		h.apiError(c, err)
		return
	}
	ok(c, detail(student, h.Service.Departments()))
}

// ExportClearance handles GET /api/export/clearance.xlsx
func (h *Handler) ExportClearance(c *gin.Context) {
	var buf bytes.Buffer
	if err := report.ExportClearance(&buf, h.Service.Departments(), h.Service.Students()); err != nil {
		h.apiError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="clearance.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ImportStudents handles POST /api/import/students (multipart field "file")
func (h *Handler) ImportStudents(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, CodeBadRequest, "Error retrieving uploaded file: "+err.Error())
		return
	}
	defer file.Close()

	rows, err := report.ParseStudents(file)
	if err != nil {
		h.Logger.Warn("unreadable import file", zap.String("filename", header.Filename), zap.Error(err))
		fail(c, http.StatusBadRequest, CodeBadRequest, "Failed to read spreadsheet: "+err.Error())
		return
	}

	res, err := h.Service.ImportStudents(c.Request.Context(), rows)
	if err != nil {
		h.apiError(c, err)
		return
	}
	h.Logger.Info("students imported",
		zap.String("filename", header.Filename),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", len(res.Skipped)))
	ok(c, res)
}
