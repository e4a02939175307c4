package domain

import "time"

type SavedListing struct {
	ID             int64     `json:"id"`
	URL            string    `json:"url"`
	Address        string    `json:"address"`
	Price          *float64  `json:"price"`
	EstimatedPrice *float64  `json:"estimated_price"`
	Confidence     float64   `json:"confidence"`
	Label          string    `json:"label"`
	SavedAt        time.Time `json:"saved_at"`
}
