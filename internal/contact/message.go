package contact

import "time"

const (
	StatusNew     = "new"
	StatusRead    = "read"
	StatusReplied = "replied"
)

// ValidStatus tells whether s is one of the known message states
func ValidStatus(s string) bool {
	return s == StatusNew || s == StatusRead || s == StatusReplied
}

type Message struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Country   string    `json:"country,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats summarizes the admin inbox
type Stats struct {
	Total   int `json:"total"`
	New     int `json:"new"`
	Read    int `json:"read"`
	Replied int `json:"replied"`
}
