package drainage

// Row is one record of the backend's GET /drainage response.
type Row struct {
	LocationID       string   `json:"location_id"`
	Name             *string  `json:"name"`
	Address          *string  `json:"address"`
	ElevationType    *string  `json:"elevation_type"`
	MaxHeightMM      *float64 `json:"max_height_mm"`
	Lat              *float64 `json:"lat"`
	Lng              *float64 `json:"lng"`
	LastMeasuredLat  *float64 `json:"last_measured_lat"`
	LastMeasuredLng  *float64 `json:"last_measured_lng"`
	CleanedAt        *string  `json:"cleaned_at"`
	DefectStatus     *string  `json:"defect_status"`
	VolumeL          *float64 `json:"volume_L"`
	TrashVolL        *float64 `json:"trash_vol_L"`
	CycleDays        *int     `json:"cycle_days"`
	CRI              *int     `json:"cri"`
	RiskReason       *string  `json:"risk_reason"`
	PriorityScore    *int     `json:"priority_score"`
	FloodProbability *float64 `json:"flood_probability"`
	FootTrafficScore *float64 `json:"foot_traffic_score"`
	DamageScale      *string  `json:"damage_scale"`
	CreatedAt        *string  `json:"created_at"`
	MLUpdatedAt      *string  `json:"ml_updated_at"`
}
