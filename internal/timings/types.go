package timings

// Response is the provider's envelope for a timings request.
type Response struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   Data   `json:"data"`
}

type Data struct {
	Timings Timings `json:"timings"`
}

// Timings carries the day's anchor times as "HH:MM" local strings. The
// provider sometimes appends a timezone suffix like "05:12 (BST)"; values
// are kept verbatim and cleaned up when parsed. Fields the provider omits
// arrive empty.
type Timings struct {
	Fajr    string `json:"Fajr"`
	Sunrise string `json:"Sunrise"`
	Dhuhr   string `json:"Dhuhr"`
	Asr     string `json:"Asr"`
	Maghrib string `json:"Maghrib"`
	Isha    string `json:"Isha"`
}
