package media

import "time"

// Mention is a press appearance shown on the "in the media" page
type Mention struct {
	ID          int       `json:"id"`
	Publication string    `json:"publication"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	URL         string    `json:"url"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}
