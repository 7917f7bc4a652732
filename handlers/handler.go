package handlers

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clearance-server-go/clearance"
	"clearance-server-go/models"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const (
	actingCookie = "acting_as"
	flashCookie  = "flash"
	actingHeader = "X-Acting-As"
)

// Handler serves the HTML views and the JSON API over one clearance service
type Handler struct {
	Service *clearance.Service
	Logger  *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(service *clearance.Service, logger *zap.Logger) *Handler {
	return &Handler{Service: service, Logger: logger}
}

// NewRouter wires middleware, templates and every route
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	// Matric numbers contain '/', so route on the escaped path and unescape params
	router.UseRawPath = true
	router.UnescapePathValues = true

	router.Use(RequestID(), RequestLogger(h.Logger), gin.Recovery())
	router.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.tmpl")))

	router.GET("/", h.Dashboard)
	router.GET("/students", h.StudentList)
	router.GET("/students/new", h.NewStudentForm)
	router.POST("/students", h.CreateStudent)
	router.GET("/students/:id", h.StudentDetail)
	router.POST("/students/:id/departments/:deptId", h.MarkDepartment)
	router.POST("/students/:id/declare", h.DeclareCleared)
	router.POST("/acting", h.SetActing)

	api := router.Group("/api")
	{
		api.GET("/ping", PingHandler)
		api.GET("/departments", h.GetDepartments)
		api.GET("/dashboard", h.GetDashboard)

		api.GET("/students", h.GetStudents)
		api.POST("/students", h.AddStudent)
		api.GET("/students/:id", h.GetStudent)
		api.PUT("/students/:id/departments/:deptId", h.SetDepartmentStatus)
		api.POST("/students/:id/declare", h.AdminDeclare)

		api.GET("/export/clearance.xlsx", h.ExportClearance)
		api.POST("/import/students", h.ImportStudents)
	}

	router.NoRoute(h.NotFound)
	return router
}

// actor returns the self-selected role. It is only used to decide which
// controls render as enabled and to annotate logs.
func (h *Handler) actor(c *gin.Context) models.Actor {
	value := c.GetHeader(actingHeader)
	if value == "" {
		value, _ = c.Cookie(actingCookie)
	}
	return models.ParseActor(value, h.Service.Departments())
}

func setFlash(c *gin.Context, msg string) {
	c.SetCookie(flashCookie, msg, 60, "/", "", false, true)
}

// takeFlash returns and clears the pending flash message
func takeFlash(c *gin.Context) string {
	msg, err := c.Cookie(flashCookie)
	if err != nil || msg == "" {
		return ""
	}
	c.SetCookie(flashCookie, "", -1, "/", "", false, true)
	return msg
}

// studentPath is the detail route for a matric number
func studentPath(id string) string {
	return "/students/" + url.PathEscape(id)
}

// localPath only accepts same-site absolute paths as redirect targets
func localPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	return p
}

// render adds the layout data every page needs
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	departments := h.Service.Departments()
	data["Actor"] = h.actor(c)
	data["Departments"] = departments
	data["Flash"] = takeFlash(c)
	data["Path"] = c.Request.URL.RequestURI()
	c.HTML(status, name, data)
}

// NotFound handles unknown routes
func (h *Handler) NotFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		fail(c, http.StatusNotFound, CodeNotFound, "Route not found")
		return
	}
	h.render(c, http.StatusNotFound, "not_found.tmpl", gin.H{"Title": "Page not found"})
}

// PingHandler handles GET /api/ping
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}
