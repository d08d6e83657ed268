package handlers

import (
	"bytes"
	"context"
	"embed"
	"encoding/csv"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/google/uuid"

	"santa/internal/models"
	"santa/internal/services"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	tenantKey     = "tenantID"
	sessionCookie = "santa_session"
	cookieMaxAge  = 24 * 60 * 60
)

// ParseTemplates loads the embedded HTML templates.
func ParseTemplates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

// HTTPHandler holds the dependencies for the HTTP handlers, like the santa service.
type HTTPHandler struct {
	service       *services.SantaService
	templates     *template.Template
	defaultAPIKey string
}

// NewHTTPHandler creates a new HTTPHandler.
// defaultAPIKey is used for sends that do not carry their own key.
func NewHTTPHandler(service *services.SantaService, templates *template.Template, defaultAPIKey string) *HTTPHandler {
	return &HTTPHandler{
		service:       service,
		templates:     templates,
		defaultAPIKey: defaultAPIKey,
	}
}

// renderPage is a helper to perform a two-step template rendering.
// It first executes the content template into a buffer, then executes the main
// layout template, passing the rendered content as a variable.
func (h *HTTPHandler) renderPage(c *gin.Context, pageData gin.H, contentTmpl string) {
	buf := new(bytes.Buffer)
	err := h.templates.ExecuteTemplate(buf, contentTmpl, pageData)
	if err != nil {
		logger.Errorf("Error executing content template %s: %v", contentTmpl, err)
		c.String(http.StatusInternalServerError, "Template rendering error")
		return
	}

	pageData["PageContent"] = template.HTML(buf.String())

	c.Header("Content-Type", "text/html; charset=utf-8")
	err = h.templates.ExecuteTemplate(c.Writer, "layout.html", pageData)
	if err != nil {
		logger.Errorf("Error executing layout template: %v", err)
		c.String(http.StatusInternalServerError, "Template rendering error")
	}
}

// renderPartial writes a single template, as returned to HTMX requests.
func (h *HTTPHandler) renderPartial(c *gin.Context, status int, name string, data any) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		logger.Errorf("Error executing template %s: %v", name, err)
		c.String(http.StatusInternalServerError, "Template error")
	}
}

// renderAlert reports an error to an HTMX target.
// HTMX only swaps successful responses, so the alert is sent with 200.
func (h *HTTPHandler) renderAlert(c *gin.Context, err error) {
	h.renderPartial(c, http.StatusOK, "alert.html", gin.H{"Message": err.Error(), "Error": true})
}

// renderParticipants returns the updated participant list partial.
func (h *HTTPHandler) renderParticipants(c *gin.Context, message string, isError bool) {
	data := gin.H{
		"Participants": h.service.GetParticipants(tenant(c)),
		"Message":      message,
		"Error":        isError,
	}
	h.renderPartial(c, http.StatusOK, "participant_list_container.html", data)
}

// RegisterPublicRoutes registers routes that do not need a session.
func (h *HTTPHandler) RegisterPublicRoutes(router gin.IRouter) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// TenantMiddleware identifies the session of the caller by cookie, creating one when missing.
func (h *HTTPHandler) TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := c.Cookie(sessionCookie)
		if err != nil || uuid.Validate(tenantID) != nil {
			tenantID = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, tenantID, cookieMaxAge, "/", "", false, true)
		}
		c.Set(tenantKey, tenantID)
		c.Next()
	}
}

func tenant(c *gin.Context) string {
	return c.GetString(tenantKey)
}

// RegisterTenantRoutes registers all the application routes that work on a session.
func (h *HTTPHandler) RegisterTenantRoutes(router gin.IRouter) {
	router.GET("/", h.ShowIndex)
	router.GET("/participants/list", h.GetParticipantListPartial)
	router.POST("/participants", h.AddParticipant)
	router.POST("/participants/:id/delete", h.DeleteParticipant)
	router.POST("/participants/:id/restrictions", h.UpdateRestrictions)
	router.POST("/upload-contacts", h.UploadContacts)
	router.POST("/clear", h.ClearParticipants)
	router.POST("/validate", h.ValidateParticipants)
	router.POST("/preview", h.GeneratePreview)
	router.POST("/send", h.SendSMS)
	router.GET("/export-results-csv", h.ExportResultsCSV)

	api := router.Group("/api")
	api.GET("/participants", h.APIListParticipants)
	api.POST("/participants", h.APIAddParticipant)
	api.PUT("/participants/:id", h.APIUpdateParticipant)
	api.DELETE("/participants/:id", h.APIDeleteParticipant)
	api.POST("/validate", h.APIValidate)
	api.POST("/preview", h.APIPreview)
	api.POST("/send", h.APISend)
}

// ShowIndex handles the request for the home page.
func (h *HTTPHandler) ShowIndex(c *gin.Context) {
	id := tenant(c)
	results, summary := h.service.GetResults(id)
	data := gin.H{
		"title":        "Draw",
		"Participants": h.service.GetParticipants(id),
		"Template":     h.service.GetTemplate(id),
		"Results":      results,
		"Summary":      summary,
	}
	h.renderPage(c, data, "index.html")
}

// GetParticipantListPartial returns the HTML partial for the participant list.
func (h *HTTPHandler) GetParticipantListPartial(c *gin.Context) {
	h.renderParticipants(c, "", false)
}

// AddParticipant handles the form submission for adding a new participant.
func (h *HTTPHandler) AddParticipant(c *gin.Context) {
	p := models.Participant{
		Name:         strings.TrimSpace(c.PostForm("name")),
		Phone:        strings.TrimSpace(c.PostForm("phone")),
		Gift:         strings.TrimSpace(c.PostForm("gift")),
		Ignore:       c.PostForm("ignore") == "true",
		Restrictions: []string{},
	}

	added, err := h.service.AddParticipant(tenant(c), p)
	if err != nil {
		h.renderAlert(c, err)
		return
	}
	if !added.IsValid {
		h.renderParticipants(c, added.Name+": "+added.ValidationMessage, true)
		return
	}
	h.renderParticipants(c, "", false)
}

// DeleteParticipant removes a participant and returns the updated list.
func (h *HTTPHandler) DeleteParticipant(c *gin.Context) {
	if err := h.service.RemoveParticipant(tenant(c), c.Param("id")); err != nil {
		h.renderAlert(c, err)
		return
	}
	h.renderParticipants(c, "", false)
}

// UpdateRestrictions replaces the receivers a participant must not draw.
func (h *HTTPHandler) UpdateRestrictions(c *gin.Context) {
	if err := h.service.SetRestrictions(tenant(c), c.Param("id"), c.PostFormArray("restrictions")); err != nil {
		h.renderAlert(c, err)
		return
	}
	h.renderParticipants(c, "", false)
}

// UploadContacts handles a contact file upload or pasted contact lines.
func (h *HTTPHandler) UploadContacts(c *gin.Context) {
	var reader io.Reader
	file, _, err := c.Request.FormFile("contactsFile")
	switch {
	case err == nil:
		defer file.Close()
		reader = file
	case strings.TrimSpace(c.PostForm("contactsText")) != "":
		reader = strings.NewReader(c.PostForm("contactsText"))
	default:
		h.renderParticipants(c, "Select a file or paste contact lines", true)
		return
	}

	report, err := h.service.ImportContacts(tenant(c), reader)
	if err != nil {
		h.renderAlert(c, err)
		return
	}
	if len(report.Participants) == 0 {
		h.renderParticipants(c, "No valid contact found", true)
		return
	}

	message := pluralize(len(report.Participants), "contact") + " loaded"
	if report.Skipped > 0 {
		message += " (" + pluralize(report.Skipped, "line") + " skipped)"
	}
	h.renderParticipants(c, message, false)
}

// ClearParticipants drops the whole session.
func (h *HTTPHandler) ClearParticipants(c *gin.Context) {
	h.service.ClearSession(tenant(c))
	h.renderParticipants(c, "", false)
}

// ValidateParticipants stamps validity on every participant.
func (h *HTTPHandler) ValidateParticipants(c *gin.Context) {
	_, valid, invalid, err := h.service.ValidateParticipants(tenant(c))
	if err != nil {
		h.renderParticipants(c, err.Error(), true)
		return
	}
	if invalid == 0 {
		h.renderParticipants(c, "All "+pluralize(valid, "contact")+" are valid", false)
		return
	}
	h.renderParticipants(c, pluralize(valid, "valid contact")+", "+pluralize(invalid, "error"), true)
}

// GeneratePreview runs a draw and renders the personalized messages.
func (h *HTTPHandler) GeneratePreview(c *gin.Context) {
	outcome, err := h.service.Preview(tenant(c), c.PostForm("messageTemplate"))
	if err != nil {
		h.renderAlert(c, err)
		return
	}
	h.renderPartial(c, http.StatusOK, "preview_list.html", gin.H{"Previews": outcome.Previews})
}

// SendSMS runs a draw and notifies every participant.
func (h *HTTPHandler) SendSMS(c *gin.Context) {
	report, err := h.send(c, c.PostForm("apiKey"), c.PostForm("messageTemplate"))
	if err != nil {
		h.renderAlert(c, err)
		return
	}
	h.renderPartial(c, http.StatusOK, "send_results.html", gin.H{
		"Results": report.Results,
		"Summary": report.Summary,
	})
}

// send detaches the batch from the request so a closed browser tab does not cut it short.
func (h *HTTPHandler) send(c *gin.Context, apiKey, messageTemplate string) (*services.SendReport, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		apiKey = h.defaultAPIKey
	}
	ctx := context.WithoutCancel(c.Request.Context())
	return h.service.Send(ctx, tenant(c), apiKey, messageTemplate)
}

// ExportResultsCSV handles the request to download the send results as a CSV file.
func (h *HTTPHandler) ExportResultsCSV(c *gin.Context) {
	results, _ := h.service.GetResults(tenant(c))

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=santa_results.csv")

	// Add BOM to ensure UTF-8 compatibility in Excel
	c.Writer.Write([]byte("\xef\xbb\xbf"))

	w := csv.NewWriter(c.Writer)

	if err := w.Write([]string{"Name", "Phone", "Status", "Error", "Timestamp"}); err != nil {
		logger.Errorf("Error writing CSV header: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
		return
	}

	for _, r := range results {
		row := []string{r.RecipientName, r.PhoneNumber, r.Status, r.ErrorMessage, r.Timestamp.Format("2006-01-02 15:04:05")}
		if err := w.Write(row); err != nil {
			logger.Errorf("Error writing CSV row: %v", err)
			c.String(http.StatusInternalServerError, "Error writing CSV")
			return
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		logger.Errorf("Error flushing CSV writer: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDrawInfeasible):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNotEnoughParticipants),
		errors.Is(err, services.ErrNoParticipants),
		errors.Is(err, services.ErrInvalidParticipants),
		errors.Is(err, services.ErrDuplicateID),
		errors.Is(err, services.ErrEmptyTemplate),
		errors.Is(err, services.ErrMissingAPIKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func pluralize(n int, word string) string {
	s := strconv.Itoa(n) + " " + word
	if n != 1 {
		s += "s"
	}
	return s
}
