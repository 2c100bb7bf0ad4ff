package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/novarobotics/stormdrain/internal/chat"
	"github.com/novarobotics/stormdrain/internal/drainage"
	"github.com/novarobotics/stormdrain/internal/metrics"
	"github.com/novarobotics/stormdrain/internal/models"
	"github.com/novarobotics/stormdrain/internal/repository"
	"github.com/novarobotics/stormdrain/internal/validation"
)

var registerValidators sync.Once

// DrainSource is the live storm-drain backend; *drainage.Client implements it.
type DrainSource interface {
	Configured() bool
	List(ctx context.Context, limit int) ([]models.StormDrain, error)
	Get(ctx context.Context, locationID string) (*drainage.Row, error)
}

// BoundarySource resolves Seoul district outlines; *vworld.Service implements it.
type BoundarySource interface {
	SeoulDistricts(ctx context.Context, domain string) ([]models.DistrictPolygon, error)
}

// ChatCompleter answers chat conversations; *chat.Client implements it.
type ChatCompleter interface {
	Complete(ctx context.Context, history []chat.Message, role chat.Role) (string, error)
	Timeout() time.Duration
}

// AlertSubscriber hands out alert feeds; *stream.Broadcaster implements it.
type AlertSubscriber interface {
	Subscribe() (uint64, <-chan *models.Alert)
	Unsubscribe(id uint64)
}

// SyncStatus reports the last snapshot refresh; *ingestion.Manager implements it.
type SyncStatus interface {
	LastSync() (time.Time, error)
}

// Services groups the handler's collaborators. Nil members disable their routes' upstream
// and those routes answer 503.
type Services struct {
	Repo          repository.DrainRepository
	Drains        DrainSource
	Boundaries    BoundarySource
	Chat          ChatCompleter
	Alerts        AlertSubscriber
	Sync          SyncStatus
	DefaultDomain string
	// AllowedHosts may be used as the V-World domain when they arrive in the Host header.
	AllowedHosts []string
}

type Handler struct {
	svc Services
}

func NewHandler(svc Services) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	registerValidators.Do(func() {
		if err := validation.RegisterGin(); err != nil {
			slog.Error("registering validators", "error", err)
		}
	})

	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.GET("/drainage", h.listDrainage)
	api.GET("/drainage/:id", h.getDrainage)
	api.GET("/search", h.search)
	api.POST("/route", h.computeRoute)
	api.GET("/project", h.project)
	api.GET("/vworld-boundaries", h.vworldBoundaries)
	api.POST("/chat", h.chat)
	api.GET("/alerts/stream", h.streamAlerts)
}

type snapshotHealth struct {
	Drains    *int       `json:"drains"`
	LastSync  *time.Time `json:"last_sync"`
	LastError string     `json:"last_error,omitempty"`
}

// health stays 200 when the snapshot is unreadable; drains is then null.
func (h *Handler) health(c *gin.Context) {
	var snap snapshotHealth
	if h.svc.Repo != nil {
		if n, err := h.svc.Repo.Count(c.Request.Context()); err == nil {
			snap.Drains = &n
		} else {
			slog.Warn("counting snapshot drains", "error", err)
		}
	}
	if h.svc.Sync != nil {
		at, err := h.svc.Sync.LastSync()
		if !at.IsZero() {
			at = at.UTC()
			snap.LastSync = &at
		}
		if err != nil {
			snap.LastError = err.Error()
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "stormdrain", "snapshot": snap})
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
