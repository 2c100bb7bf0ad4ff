package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

func (h *Handler) vworldBoundaries(c *gin.Context) {
	if h.svc.Boundaries == nil {
		errorJSON(c, http.StatusServiceUnavailable, "district boundaries not configured")
		return
	}

	domain := h.requestDomain(c)
	districts, err := h.svc.Boundaries.SeoulDistricts(c.Request.Context(), domain)
	if err != nil {
		slog.Error("district boundaries failed", "domain", domain, "error", err)
		errorJSON(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, districts)
}

// requestDomain rebuilds the caller's origin, which V-World checks against the key's
// registered domain. Only allow-listed hosts are honoured; anything else maps to the
// default domain so the per-domain cache stays bounded.
func (h *Handler) requestDomain(c *gin.Context) string {
	host := strings.ToLower(strings.TrimSpace(c.Request.Host))
	if host == "" || !h.hostAllowed(host) {
		return h.svc.DefaultDomain
	}
	proto := "http"
	if strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		proto = "https"
	}
	return proto + "://" + host
}

func (h *Handler) hostAllowed(host string) bool {
	if u, err := url.Parse(h.svc.DefaultDomain); err == nil && strings.EqualFold(u.Host, host) {
		return true
	}
	return slices.ContainsFunc(h.svc.AllowedHosts, func(allowed string) bool {
		return strings.EqualFold(strings.TrimSpace(allowed), host)
	})
}
