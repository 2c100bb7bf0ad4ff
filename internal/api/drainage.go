package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/novarobotics/stormdrain/internal/drainage"
	"github.com/novarobotics/stormdrain/internal/models"
	"github.com/novarobotics/stormdrain/internal/repository"
	"github.com/novarobotics/stormdrain/internal/validation"
)

const (
	defaultSearchLimit = 20

	// DataSourceHeader tells clients whether a list came from the backend or the local snapshot.
	DataSourceHeader = "X-Data-Source"
)

type drainURI struct {
	ID string `uri:"id" binding:"required,draincode"`
}

type drainageResponse struct {
	Item   models.StormDrain   `json:"item"`
	Detail *models.DrainDetail `json:"detail,omitempty"`
}

// listDrainage proxies the backend list and falls back to the snapshot when the
// backend is missing or failing.
func (h *Handler) listDrainage(c *gin.Context) {
	ctx := c.Request.Context()
	limit := queryInt(c, "limit", drainage.DefaultLimit)
	limit = drainage.ClampLimit(limit)

	var (
		drains []models.StormDrain
		source = "backend"
	)

	if h.svc.Drains != nil && h.svc.Drains.Configured() {
		live, err := h.svc.Drains.List(ctx, limit)
		if err == nil {
			drains = live
		} else {
			slog.Warn("backend list failed, trying snapshot", "error", err)
			snap, serr := h.snapshot(c, repository.Filter{Limit: limit})
			if serr != nil || len(snap) == 0 {
				errorJSON(c, http.StatusBadGateway, err.Error())
				return
			}
			drains, source = snap, "snapshot"
		}
	} else {
		snap, err := h.snapshot(c, repository.Filter{Limit: limit})
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, "failed to read snapshot")
			return
		}
		if len(snap) == 0 {
			errorJSON(c, http.StatusServiceUnavailable, drainage.ErrBackendNotConfigured.Error())
			return
		}
		drains, source = snap, "snapshot"
	}

	c.Header(DataSourceHeader, source)
	if c.Query("format") == "geojson" {
		c.Header("Content-Type", "application/geo+json")
		c.JSON(http.StatusOK, toGeoJSON(drains))
		return
	}
	c.JSON(http.StatusOK, drains)
}

func (h *Handler) getDrainage(c *gin.Context) {
	var uri drainURI
	if err := c.ShouldBindUri(&uri); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid drain id")
		return
	}
	id := strings.TrimSpace(uri.ID)

	if h.svc.Drains == nil || !h.svc.Drains.Configured() {
		// without a backend only the snapshot record is available
		if h.svc.Repo != nil {
			d, err := h.svc.Repo.GetByID(c.Request.Context(), id)
			if err == nil && d != nil {
				c.Header(DataSourceHeader, "snapshot")
				c.JSON(http.StatusOK, drainageResponse{Item: *d})
				return
			}
		}
		errorJSON(c, http.StatusServiceUnavailable, drainage.ErrBackendNotConfigured.Error())
		return
	}

	row, err := h.svc.Drains.Get(c.Request.Context(), id)
	if errors.Is(err, drainage.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "storm drain not found")
		return
	}
	if err != nil {
		slog.Error("backend detail failed", "id", id, "error", err)
		errorJSON(c, http.StatusBadGateway, err.Error())
		return
	}

	detail := drainage.ToDetail(*row)
	c.Header(DataSourceHeader, "backend")
	c.JSON(http.StatusOK, drainageResponse{
		Item:   drainage.ToStormDrain(*row),
		Detail: &detail,
	})
}

// search queries the local snapshot by name, address or manage number.
func (h *Handler) search(c *gin.Context) {
	filter := repository.Filter{
		Limit: defaultSearchLimit,
		Query: validation.SanitizeSearch(c.Query("q")),
	}
	if l := queryInt(c, "limit", 0); l > 0 && l <= drainage.MaxLimit {
		filter.Limit = l
	}
	if o := queryInt(c, "offset", 0); o > 0 {
		filter.Offset = o
	}
	if s := c.Query("status"); s != "" {
		status, ok := parseStatus(s)
		if !ok {
			errorJSON(c, http.StatusBadRequest, "invalid status")
			return
		}
		filter.Status = &status
	}
	if m := c.Query("min_cri"); m != "" {
		cri, err := strconv.Atoi(m)
		if err != nil || cri < 0 || cri > 100 {
			errorJSON(c, http.StatusBadRequest, "invalid min_cri")
			return
		}
		filter.MinCRI = &cri
	}

	drains, err := h.snapshot(c, filter)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "failed to search drains")
		return
	}
	if drains == nil {
		drains = []models.StormDrain{}
	}
	c.JSON(http.StatusOK, gin.H{
		"query": filter.Query,
		"items": drains,
		"count": len(drains),
	})
}

func (h *Handler) snapshot(c *gin.Context, filter repository.Filter) ([]models.StormDrain, error) {
	if h.svc.Repo == nil {
		return nil, nil
	}
	drains, err := h.svc.Repo.ListDrains(c.Request.Context(), filter)
	if err != nil {
		slog.Error("snapshot query failed", "error", err)
		return nil, err
	}
	return drains, nil
}

func parseStatus(s string) (models.DrainStatus, bool) {
	switch st := models.DrainStatus(s); st {
	case models.DrainStatusNormal, models.DrainStatusWarning, models.DrainStatusError:
		return st, true
	}
	return "", false
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
