package models

// EventCategory is one card on the festival events page.
type EventCategory struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	VideoURL string `json:"video_url"`
	Link     string `json:"link"`
	Status   string `json:"status,omitempty"` // publish, unpublish
}
