package app

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campussathi/campussathi-go/internal/config"
	apperrors "github.com/campussathi/campussathi-go/internal/errors"
	"github.com/campussathi/campussathi-go/internal/maintenance"
	"github.com/campussathi/campussathi-go/internal/sentry"
	"github.com/campussathi/campussathi-go/internal/storage"
)

// registerAdminRoutes mounts the operator API under /admin.
func (a *Application) registerAdminRoutes(r *gin.Engine) {
	g := r.Group("/admin", basicAuthMiddleware("admin", a.cfg.AdminUsername, a.cfg.AdminPassword))

	g.POST("/announcements", a.postAnnouncement)
	g.DELETE("/announcements", a.clearAnnouncements)

	g.GET("/unanswered", a.listUnanswered)
	g.POST("/unanswered/:id/approve", a.approveUnanswered)

	g.POST("/uploads/:kind", a.upload)
	g.POST("/refresh", a.refreshIndexes)
	g.POST("/ingest", a.ingestURL)
	g.GET("/pages", a.listPages)
	g.DELETE("/pages", a.deletePage)

	g.GET("/students", a.listStudents)
	g.PUT("/students/:uid", a.upsertStudent)
	g.DELETE("/students/:uid", a.deleteStudent)

	g.GET("/logs", a.listLogs)

	g.GET("/jobs", a.listJobs)
	g.POST("/jobs/:name/run", a.runJob)
}

// adminError maps a service error to an HTTP status and its user message.
func (a *Application) adminError(c *gin.Context, err error) {
	status, kind := http.StatusInternalServerError, "internal"
	switch {
	case apperrors.IsNotFound(err), errors.Is(err, maintenance.ErrUnknownJob):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrAlreadyResolved):
		status, kind = http.StatusConflict, "conflict"
	case errors.Is(err, apperrors.ErrUnknownUploadKind), apperrors.IsInvalidInput(err):
		status, kind = http.StatusBadRequest, "invalid_input"
	}
	a.metrics.RecordHTTPError(kind, "admin")

	if status >= http.StatusInternalServerError {
		a.logger.WithError(err).WithField("http_path", c.FullPath()).
			ErrorContext(c.Request.Context(), "Admin request failed")
		sentry.Capture(c.Request.Context(), err, "admin", "route", c.FullPath())
	}
	c.JSON(status, gin.H{"error": apperrors.PublicMessage(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func (a *Application) reply(c *gin.Context, msg string, err error) {
	if err != nil {
		a.adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (a *Application) postAnnouncement(c *gin.Context) {
	var body struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid JSON body.")
		return
	}
	msg, err := a.admin.PostAnnouncement(c.Request.Context(), body.Message)
	a.reply(c, msg, err)
}

func (a *Application) clearAnnouncements(c *gin.Context) {
	msg, err := a.admin.ClearAnnouncements(c.Request.Context())
	a.reply(c, msg, err)
}

func (a *Application) listUnanswered(c *gin.Context) {
	items, err := a.admin.PendingUnanswered(c.Request.Context())
	if err != nil {
		a.adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unanswered": nonNil(items), "count": len(items)})
}

func (a *Application) approveUnanswered(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid unanswered ID.")
		return
	}
	var body struct {
		Answer string `json:"answer"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid JSON body.")
		return
	}
	msg, err := a.admin.Approve(c.Request.Context(), id, body.Answer)
	a.reply(c, msg, err)
}

func (a *Application) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, config.MaxUploadSize)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Uploaded file is too large."})
			return
		}
		badRequest(c, "Missing multipart field 'file'.")
		return
	}
	f, err := fh.Open()
	if err != nil {
		a.adminError(c, err)
		return
	}
	defer func() { _ = f.Close() }()

	body, err := io.ReadAll(f)
	if err != nil {
		a.adminError(c, err)
		return
	}
	msg, err := a.admin.Upload(c.Request.Context(), c.Param("kind"), fh.Filename, body)
	a.reply(c, msg, err)
}

func (a *Application) refreshIndexes(c *gin.Context) {
	msg, err := a.admin.RefreshIndexes(c.Request.Context())
	a.reply(c, msg, err)
}

func (a *Application) ingestURL(c *gin.Context) {
	var body struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "Invalid JSON body.")
		return
	}
	msg, err := a.admin.IngestURL(c.Request.Context(), body.URL)
	a.reply(c, msg, err)
}

func (a *Application) listPages(c *gin.Context) {
	pages, err := a.admin.ListWebPages(c.Request.Context())
	if err != nil {
		a.adminError(c, err)
		return
	}
	// Page bodies can be large; listings carry metadata only.
	for i := range pages {
		pages[i].Content = ""
	}
	c.JSON(http.StatusOK, gin.H{"pages": nonNil(pages), "count": len(pages)})
}

func (a *Application) deletePage(c *gin.Context) {
	msg, err := a.admin.DeleteWebPage(c.Request.Context(), c.Query("url"))
	a.reply(c, msg, err)
}

func (a *Application) listStudents(c *gin.Context) {
	students, err := a.admin.ListStudents(c.Request.Context(), c.Query("search"))
	if err != nil {
		a.adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": nonNil(students), "count": len(students)})
}

func (a *Application) upsertStudent(c *gin.Context) {
	var student storage.Student
	if err := c.ShouldBindJSON(&student); err != nil {
		badRequest(c, "Invalid JSON body.")
		return
	}
	student.UID = c.Param("uid")
	msg, err := a.admin.UpsertStudent(c.Request.Context(), &student)
	a.reply(c, msg, err)
}

func (a *Application) deleteStudent(c *gin.Context) {
	msg, err := a.admin.DeleteStudent(c.Request.Context(), c.Param("uid"))
	a.reply(c, msg, err)
}

func (a *Application) listLogs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer.")
			return
		}
		limit = n
	}
	fallbackOnly := false
	if raw := c.Query("fallback_only"); raw != "" {
		b, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			badRequest(c, "fallback_only must be true or false.")
			return
		}
		fallbackOnly = b
	}

	logs, err := a.admin.ListQueryLogs(c.Request.Context(), limit, fallbackOnly)
	if err != nil {
		a.adminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": nonNil(logs), "count": len(logs)})
}

func (a *Application) listJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": a.scheduler.States()})
}

func (a *Application) runJob(c *gin.Context) {
	name := c.Param("name")
	ran, err := a.scheduler.RunNow(name)
	if err != nil {
		a.adminError(c, err)
		return
	}
	if !ran {
		c.JSON(http.StatusConflict, gin.H{"error": "Job " + name + " is already running."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": name, "state": a.scheduler.States()[name]})
}

// nonNil makes empty listings encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
