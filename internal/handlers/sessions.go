package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"caseintake/internal/intake"
	"caseintake/internal/models"
	"caseintake/internal/slots"
	"caseintake/internal/upload"
)

type CreateSessionRequest struct {
	PatientID string `json:"patientId"`
}

func (h *Handler) session(c *gin.Context) (*intake.Session, bool) {
	s, err := h.sessions.Get(c.Request.Context(), bearer(c), c.Param("id"))
	if presentError(c, err) {
		return nil, false
	}
	return s, true
}

func slotParam(c *gin.Context) (int, bool) {
	slot, ok := models.ParseSlot(c.Param("slot"))
	if !ok {
		presentError(c, errors.Wrapf(slots.ErrInvalidSlot, "%q", c.Param("slot")))
		return 0, false
	}
	return slot, true
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "details": err.Error()})
			return
		}
	}
	if req.PatientID == "" {
		req.PatientID = c.Query("patientId")
	}

	s, err := h.sessions.Create(c.Request.Context(), bearer(c), req.PatientID)
	if presentError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": s.View()})
}

func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s.View()})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if presentError(c, h.sessions.Drop(c.Request.Context(), bearer(c), c.Param("id"))) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session closed"})
}

func (h *Handler) UpdateFields(c *gin.Context) {
	var updates []intake.FieldUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "details": err.Error()})
		return
	}
	s, ok := h.session(c)
	if !ok {
		return
	}
	if presentError(c, s.Apply(bearer(c), updates)) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s.View()})
}

func (h *Handler) NextTab(c *gin.Context) {
	h.moveTab(c, (*intake.Session).Next)
}

func (h *Handler) PreviousTab(c *gin.Context) {
	h.moveTab(c, (*intake.Session).Previous)
}

func (h *Handler) moveTab(c *gin.Context, move func(*intake.Session, context.Context, string) (intake.Tab, error)) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if _, err := move(s, c.Request.Context(), bearer(c)); presentError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s.View()})
}

func (h *Handler) Submit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	path, err := s.Submit(c.Request.Context(), bearer(c))
	if presentError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Case submitted", "redirect": path, "session": s.View()})
}

func (h *Handler) ListSlots(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": s.Slots()})
}

func (h *Handler) UploadSlot(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	slot, ok := slotParam(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "A file is required", "details": err.Error()})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Could not read the uploaded file", "details": err.Error()})
		return
	}
	defer f.Close()

	out, err := s.Upload(c.Request.Context(), slot, upload.File{Name: header.Filename, Size: header.Size, Body: f})
	if presentError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"slot": out})
}

func (h *Handler) DeleteSlot(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	slot, ok := slotParam(c)
	if !ok {
		return
	}
	if presentError(c, s.DeleteFile(c.Request.Context(), slot)) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File deleted", "slots": s.Slots()})
}

func (h *Handler) Categories(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": s.Categories()})
}

func (h *Handler) Notices(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	after, err := strconv.ParseUint(c.DefaultQuery("after", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid notice sequence", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notices": s.Notices(after)})
}
