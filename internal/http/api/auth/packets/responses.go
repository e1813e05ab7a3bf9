package packets

// ProfileResponse mirrors model.User but flattens times to RFC3339 and
// omits credentials.
type ProfileResponse struct {
	ID          int      `json:"id"`
	Email       string   `json:"email"`
	Name        *string  `json:"name"`
	Timezone    string   `json:"timezone"`
	FiqhMethod  int      `json:"fiqh_method"`
	LocationLat *float64 `json:"location_lat"`
	LocationLng *float64 `json:"location_lng"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}
