package packets

// REQUESTS FOR /api/prayers/*

type CompletePrayerRequest struct {
	InJamaat bool    `json:"in_jamaat"`
	Notes    *string `json:"notes"`
}
