package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"santa/internal/models"
)

// ValidateRequest is the body of POST /api/validate.
type ValidateRequest struct {
	Recipients []models.Participant `json:"recipients"`
}

// PreviewRequest is the body of POST /api/preview.
type PreviewRequest struct {
	Recipients      []models.Participant `json:"recipients"`
	MessageTemplate string               `json:"messageTemplate"`
}

// SendSMSRequest is the body of POST /api/send.
type SendSMSRequest struct {
	APIKey          string               `json:"apiKey"`
	Recipients      []models.Participant `json:"recipients"`
	MessageTemplate string               `json:"messageTemplate"`
}

func (h *HTTPHandler) apiError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("API request %s failed: %v", c.FullPath(), err)
	}
	c.JSON(status, gin.H{"success": false, "message": err.Error()})
}

func (h *HTTPHandler) bind(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// useRecipients replaces the session list when the request carries one.
func (h *HTTPHandler) useRecipients(c *gin.Context, recipients []models.Participant) {
	if len(recipients) > 0 {
		h.service.ReplaceParticipants(tenant(c), recipients)
	}
}

// APIListParticipants returns the session participants.
func (h *HTTPHandler) APIListParticipants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "recipients": h.service.GetParticipants(tenant(c))})
}

// APIAddParticipant adds one participant.
func (h *HTTPHandler) APIAddParticipant(c *gin.Context) {
	var p models.Participant
	if !h.bind(c, &p) {
		return
	}
	added, err := h.service.AddParticipant(tenant(c), p)
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "recipient": added})
}

// APIUpdateParticipant edits one participant.
func (h *HTTPHandler) APIUpdateParticipant(c *gin.Context) {
	var p models.Participant
	if !h.bind(c, &p) {
		return
	}
	updated, err := h.service.UpdateParticipant(tenant(c), c.Param("id"), p)
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "recipient": updated})
}

// APIDeleteParticipant removes one participant.
func (h *HTTPHandler) APIDeleteParticipant(c *gin.Context) {
	if err := h.service.RemoveParticipant(tenant(c), c.Param("id")); err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// APIValidate stamps validity on every participant.
func (h *HTTPHandler) APIValidate(c *gin.Context) {
	var req ValidateRequest
	if !h.bind(c, &req) {
		return
	}
	h.useRecipients(c, req.Recipients)

	recipients, valid, invalid, err := h.service.ValidateParticipants(tenant(c))
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    invalid == 0,
		"valid":      valid,
		"invalid":    invalid,
		"recipients": recipients,
	})
}

// APIPreview runs a draw and returns the rendered messages.
func (h *HTTPHandler) APIPreview(c *gin.Context) {
	var req PreviewRequest
	if !h.bind(c, &req) {
		return
	}
	h.useRecipients(c, req.Recipients)

	outcome, err := h.service.Preview(tenant(c), req.MessageTemplate)
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "previews": outcome.Previews})
}

// APISend runs a draw and sends every message.
func (h *HTTPHandler) APISend(c *gin.Context) {
	var req SendSMSRequest
	if !h.bind(c, &req) {
		return
	}
	h.useRecipients(c, req.Recipients)

	report, err := h.send(c, req.APIKey, req.MessageTemplate)
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": report.Results, "summary": report.Summary})
}
