package drainage

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/novarobotics/stormdrain/internal/models"
)

const defaultRecommendation = "현재 데이터 기준 상태를 확인해 주세요."

// timestamps from the backend are usually naive ISO datetimes
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ToStormDrain maps a backend row onto the map marker model. Coordinates
// measured on site by the mobile app win over the registered ones.
func ToStormDrain(row Row) models.StormDrain {
	d := models.StormDrain{
		ID:          row.LocationID,
		Name:        strings.TrimSpace(deref(row.Name)),
		Address:     strings.TrimSpace(deref(row.Address)),
		Lat:         firstFloat(row.LastMeasuredLat, row.Lat),
		Lng:         firstFloat(row.LastMeasuredLng, row.Lng),
		Status:      models.StatusFromCRI(row.CRI),
		LastChecked: formatDate(lastActivity(row)),
		ManageNo:    row.LocationID,
		CRI:         row.CRI,
	}
	if d.Name == "" {
		d.Name = "빗물받이 " + row.LocationID
	}
	if row.VolumeL != nil {
		capacity := *row.VolumeL / 1000
		d.DrainageCapacity = &capacity
	}
	return d
}

// ToDetail maps a backend row onto the detail panel model.
func ToDetail(row Row) models.DrainDetail {
	detail := models.DrainDetail{
		ID:               row.LocationID,
		ManageNo:         row.LocationID,
		LastCleaned:      "—",
		RecommendedCycle: "30일 이내",
		AIRecommendation: defaultRecommendation,
	}
	if row.CRI != nil {
		detail.CRI = *row.CRI
	}
	if last := formatDate(lastActivity(row)); last != "" {
		detail.LastCleaned = strings.ReplaceAll(last, "-", ".")
	}

	switch {
	case row.TrashVolL != nil:
		detail.RecentCollectionKg = math.Round(*row.TrashVolL*0.1) / 10
	case row.VolumeL != nil:
		detail.RecentCollectionKg = math.Round(*row.VolumeL*0.1) / 10
	}

	reason := strings.TrimSpace(deref(row.RiskReason))
	switch {
	case row.CycleDays != nil:
		detail.RecommendedCycle = fmt.Sprintf("%d일 이내", *row.CycleDays)
	case deref(row.RiskReason) != "":
		detail.RecommendedCycle = "점검 권장"
	}
	if reason != "" {
		detail.AIRecommendation = reason
	}

	defect := strings.ToLower(strings.TrimSpace(deref(row.DefectStatus)))
	detail.DefectiveConstruction = defect != "" && defect != "none"

	return detail
}

func lastActivity(row Row) string {
	for _, s := range []*string{row.CleanedAt, row.CreatedAt, row.MLUpdatedAt} {
		if s != nil && *s != "" {
			return *s
		}
	}
	return ""
}

// formatDate renders an ISO timestamp as a UTC YYYY-MM-DD date, or "" when it cannot be parsed.
func formatDate(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("2006-01-02")
		}
	}
	return ""
}

func firstFloat(vals ...*float64) float64 {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return 0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
