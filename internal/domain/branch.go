package domain

import "time"

// Branch represents a pharmacy branch location
type Branch struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Street       string    `json:"street"`
	Borough      string    `json:"borough"`
	City         string    `json:"city"`
	Rating       float64   `json:"rating"`
	WorkingHours string    `json:"working_hours"`
	About        string    `json:"about"`
	SiteURL      string    `json:"site_url"`
	LocationURL  string    `json:"location_url"`
	PharmacyID   string    `json:"pharmacy_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
