package models

type DrainStatus string

const (
	DrainStatusNormal  DrainStatus = "normal"
	DrainStatusWarning DrainStatus = "warning"
	DrainStatusError   DrainStatus = "error"
)

// StatusFromCRI maps a risk index to a marker status. A missing CRI is normal.
func StatusFromCRI(cri *int) DrainStatus {
	if cri == nil {
		return DrainStatusNormal
	}
	switch {
	case *cri >= 90:
		return DrainStatusError
	case *cri >= 60:
		return DrainStatusWarning
	default:
		return DrainStatusNormal
	}
}

// StormDrain is one storm-drain location as shown on the map.
type StormDrain struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Address          string      `json:"address"`
	Lat              float64     `json:"lat"`
	Lng              float64     `json:"lng"`
	Status           DrainStatus `json:"status"`
	LastChecked      string      `json:"lastChecked,omitempty"`
	ManageNo         string      `json:"manageNo,omitempty"`
	InstalledAt      string      `json:"installedAt,omitempty"`
	DrainageCapacity *float64    `json:"drainageCapacity,omitempty"` // m³
	CheckCycleDays   *int        `json:"checkCycleDays,omitempty"`
	CRI              *int        `json:"cri,omitempty"`
	// Score is a caller-supplied planning weight. It is not bounded to 0..100
	// and may be fractional.
	Score *float64 `json:"score,omitempty"`
}

// Risk returns Score when set, else the CRI, else 0.
func (d *StormDrain) Risk() float64 {
	switch {
	case d.Score != nil:
		return *d.Score
	case d.CRI != nil:
		return float64(*d.CRI)
	default:
		return 0
	}
}

// DrainDetail backs the detail panel of a single drain.
type DrainDetail struct {
	ID                    string  `json:"id"`
	ManageNo              string  `json:"manageNo"`
	CRI                   int     `json:"cri"`
	LastCleaned           string  `json:"lastCleaned"`
	RecentCollectionKg    float64 `json:"recentCollectionKg"`
	RecommendedCycle      string  `json:"recommendedCycle"`
	DefectiveConstruction bool    `json:"defectiveConstruction"`
	AIRecommendation      string  `json:"aiRecommendation"`
}
