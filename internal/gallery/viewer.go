// Package gallery is the display collaborator for the receiver: an HTTP
// surface exposing the most recent photo, its metadata, and server health.
// It replaces an interactive viewer window; decoding happens client-side in
// the browser.
package gallery

import (
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/photodrop/internal/observability"
	"github.com/danmuck/photodrop/internal/receiver"
)

// Viewer serves the latest stored photo over HTTP. It implements
// receiver.Notifier; notifications only swap a pointer, so the accept loop
// is never blocked on a slow HTTP client.
type Viewer struct {
	Addr string

	mu      sync.RWMutex
	latest  *receiver.StoredPhoto
	started time.Time
	router  *gin.Engine
}

var _ receiver.Notifier = (*Viewer)(nil)

func New(addr string, corsOrigins []string) *Viewer {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	return &Viewer{
		Addr:    addr,
		started: time.Now(),
		router:  r,
	}
}

// PhotoStored records the newest photo for display.
func (v *Viewer) PhotoStored(photo receiver.StoredPhoto) {
	v.mu.Lock()
	v.latest = &photo
	v.mu.Unlock()
}

// Latest returns the most recently stored photo, if any.
func (v *Viewer) Latest() (receiver.StoredPhoto, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.latest == nil {
		return receiver.StoredPhoto{}, false
	}
	return *v.latest, true
}

func (v *Viewer) HTTPRouter() *gin.Engine {
	return v.router
}

func (v *Viewer) RegisterRoutes() {
	v.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(v.started).String(),
			"service": "photodrop-gallery",
			"version": "0.0.1",
		})
	})

	v.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"uptime": time.Since(v.started).String(),
		})
	})

	v.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v.router.GET("/latest", func(c *gin.Context) {
		photo, ok := v.Latest()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no photo received yet"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"file":        filepath.Base(photo.Path),
			"bytes":       photo.Bytes,
			"from":        photo.From,
			"received_at": photo.ReceivedAt.Format(time.RFC3339),
		})
	})

	v.router.GET("/latest/photo", func(c *gin.Context) {
		photo, ok := v.Latest()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no photo received yet"})
			return
		}
		c.Header("Content-Type", "image/jpeg")
		c.File(photo.Path)
	})
}

// Serve blocks running the HTTP viewer.
func (v *Viewer) Serve() error {
	return v.router.Run(v.Addr)
}
