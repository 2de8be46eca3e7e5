package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// API wires every component onto the HTTP surface. All state lives in the
// components it holds; handlers are methods on this struct.
type API struct {
	auth         *Auth
	storage      *Storage
	notes        *NoteStore
	shares       *ShareRegistry
	apiLimiter   *ipLimiter
	loginLimiter *ipLimiter
	startTime    time.Time
}

func NewAPI(auth *Auth, storage *Storage, notes *NoteStore, shares *ShareRegistry, cfg *Config) *API {
	window, _ := cfg.RateWindow()
	return &API{
		auth:         auth,
		storage:      storage,
		notes:        notes,
		shares:       shares,
		apiLimiter:   newIPLimiter(cfg.Limits.APIRequests, window),
		loginLimiter: newIPLimiter(cfg.Limits.LoginAttempts, window),
		startTime:    time.Now(),
	}
}

func (a *API) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(a.limitAPI)

	api.GET("/health", a.health)
	api.GET("/stats", a.auth.Middleware(), a.stats)

	auth := api.Group("/auth")
	auth.POST("/login", a.limitLogin, a.login)
	auth.POST("/logout", a.auth.Middleware(), a.logout)
	auth.GET("/me", a.auth.Middleware(), a.me)

	files := api.Group("/files")
	// Share redemption is deliberately public: the unguessable id is the
	// capability. Everything else under /files requires a session.
	files.GET("/shared/:shareId", a.sharedFile)

	protected := files.Group("", a.auth.Middleware())
	protected.POST("/upload", a.uploadFiles)
	protected.GET("", a.listFiles)
	protected.GET("/download/:filename", a.downloadFile)
	protected.DELETE("/:filename", a.deleteFile)
	protected.POST("/share/:filename", a.shareFile)

	notes := api.Group("/notes", a.auth.Middleware())
	notes.GET("", a.listNotes)
	notes.GET("/:id", a.getNote)
	notes.POST("", a.saveNote)
	notes.DELETE("/:id", a.deleteNote)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(a.startTime).Seconds(),
	})
}

// stats summarizes the stored state plus the recent audit trail.
func (a *API) stats(c *gin.Context) {
	files, err := a.storage.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read storage"})
		return
	}
	var totalSize int64
	for _, f := range files {
		totalSize += f.Size
	}

	notes, err := a.notes.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read notes"})
		return
	}

	events, err := RecentEvents(20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read audit log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"files":        len(files),
			"totalSize":    totalSize,
			"notes":        len(notes),
			"activeShares": a.shares.Len(),
			"recentEvents": events,
		},
	})
}
