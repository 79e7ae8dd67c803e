package models

import "time"

// WorkerRecord is a registered job seeker. Rating counts completed jobs and only grows.
type WorkerRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	District  string    `json:"district"`
	Block     string    `json:"block,omitempty"`
	Skills    []string  `json:"skills"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}
