package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	limits "github.com/gin-contrib/size"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	CORSOrigins    []string
	MaxUploadBytes int64
	Development    bool
	// Files, when set, is served under /files.
	Files FileSource
}

func corsOption(origins []string) cors.Config {
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
}

// NewRouter wires the gateway routes.
func NewRouter(h *Handler, conf RouterConfig) *gin.Engine {
	if !conf.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if len(conf.CORSOrigins) > 0 {
		r.Use(cors.New(corsOption(conf.CORSOrigins)))
	}
	r.Use(Logger(h.logger))

	r.GET("/liveness", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	if conf.Files != nil {
		r.GET("/files/*key", serveFiles(conf.Files))
	}

	authed := r.Group("/", RequireBearer())

	sessions := authed.Group("/intake/sessions")
	sessions.POST("", h.CreateSession)
	sessions.GET("/:id", h.GetSession)
	sessions.DELETE("/:id", h.DeleteSession)
	sessions.PATCH("/:id/fields", h.UpdateFields)
	sessions.POST("/:id/next", h.NextTab)
	sessions.POST("/:id/previous", h.PreviousTab)
	sessions.POST("/:id/submit", h.Submit)
	sessions.GET("/:id/slots", h.ListSlots)
	sessions.POST("/:id/slots/:slot", limits.RequestSizeLimiter(conf.MaxUploadBytes), h.UploadSlot)
	sessions.DELETE("/:id/slots/:slot", h.DeleteSlot)
	sessions.GET("/:id/categories", h.Categories)
	sessions.GET("/:id/notices", h.Notices)

	patients := authed.Group("/patients")
	patients.GET("", h.GetPatientsWithPage)
	patients.GET("/:id", h.GetPatient)
	patients.GET("/:id/comments", h.GetComments)
	patients.POST("/:id/comments", h.AddComment)
	patients.GET("/:id/files", h.GetPatientFiles)

	authed.GET("/me", h.GetProfile)
	authed.GET("/doctors", h.GetDoctors)
	authed.GET("/admins", h.GetOtherAdmins)
	authed.POST("/admins", h.InsertAdmin)

	return r
}
