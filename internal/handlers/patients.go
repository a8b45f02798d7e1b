package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"caseintake/internal/apiclient"
	"caseintake/internal/intake"
	"caseintake/internal/models"
)

// PatientsAPI is the part of the patients API served read-through by the
// gateway.
type PatientsAPI interface {
	GetPatient(ctx context.Context, token, id string) (json.RawMessage, error)
	ListPatients(ctx context.Context, token string, page, limit int) (apiclient.PatientPage, error)
	PatientFiles(ctx context.Context, token, patientID string) (models.CaseFiles, error)
	Comments(ctx context.Context, token, patientID string) ([]models.Comment, error)
	AddComment(ctx context.Context, token, patientID, text string) (models.Comment, error)
	Profile(ctx context.Context, token string) (models.Profile, error)
	UsersByRole(ctx context.Context, token string, role models.Role) ([]models.Profile, error)
	OtherAdmins(ctx context.Context, token string) ([]models.AdminAccount, error)
	CreateAdmin(ctx context.Context, token string, admin models.AdminAccount) (models.AdminAccount, error)
}

type Handler struct {
	sessions *intake.Manager
	api      PatientsAPI
	logger   zerolog.Logger
}

func New(sessions *intake.Manager, api PatientsAPI, logger zerolog.Logger) *Handler {
	return &Handler{sessions: sessions, api: api, logger: logger}
}

// --- Structs for Request Binding ---

type AddCommentRequest struct {
	Comment string `json:"comment" binding:"required,max=1500"`
}

// --- Handler Functions ---

func (h *Handler) GetPatientsWithPage(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}

	out, err := h.api.ListPatients(c.Request.Context(), bearer(c), page, limit)
	if presentError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":    out.Total,
		"page":     out.Page,
		"limit":    out.Limit,
		"patients": out.Patients,
	})
}

func (h *Handler) GetPatient(c *gin.Context) {
	raw, err := h.api.GetPatient(c.Request.Context(), bearer(c), c.Param("id"))
	if presentError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"patient": raw})
}

func (h *Handler) GetPatientFiles(c *gin.Context) {
	files, err := h.api.PatientFiles(c.Request.Context(), bearer(c), c.Param("id"))
	if presentError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *Handler) GetComments(c *gin.Context) {
	comments, err := h.api.Comments(c.Request.Context(), bearer(c), c.Param("id"))
	if presentError(c, err) {
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *Handler) AddComment(c *gin.Context) {
	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Comment is required", "details": err.Error()})
		return
	}
	comment, err := h.api.AddComment(c.Request.Context(), bearer(c), c.Param("id"), req.Comment)
	if presentError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.api.Profile(c.Request.Context(), bearer(c))
	if presentError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile, "isAdmin": profile.Role.IsAdmin()})
}

// GetDoctors lists the doctors a case can be assigned to.
func (h *Handler) GetDoctors(c *gin.Context) {
	doctors, err := h.api.UsersByRole(c.Request.Context(), bearer(c), models.RoleDoctor)
	if presentError(c, err) {
		return
	}
	if doctors == nil {
		doctors = []models.Profile{}
	}
	c.JSON(http.StatusOK, gin.H{"users": doctors})
}

func (h *Handler) GetOtherAdmins(c *gin.Context) {
	admins, err := h.api.OtherAdmins(c.Request.Context(), bearer(c))
	if presentError(c, err) {
		return
	}
	if admins == nil {
		admins = []models.AdminAccount{}
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

func (h *Handler) InsertAdmin(c *gin.Context) {
	var req models.AdminAccount
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid admin details", "details": err.Error()})
		return
	}
	admin, err := h.api.CreateAdmin(c.Request.Context(), bearer(c), req)
	if presentError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"admin": admin})
}
