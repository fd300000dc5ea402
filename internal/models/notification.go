package models

// Payload keys carried by every proximity notification.
const (
	PayloadReportID      = "reportId"
	PayloadCategory      = "category"
	PayloadDistanceMiles = "distanceMiles"
	PayloadLocationLabel = "locationLabel"
)

// NotificationRequest is handed to the notification sink. Payload values are
// scalars only (string, float64, bool, int).
type NotificationRequest struct {
	Identifier string         `json:"identifier"`
	Title      string         `json:"title"`
	Body       string         `json:"body"`
	Payload    map[string]any `json:"payload"`
}
