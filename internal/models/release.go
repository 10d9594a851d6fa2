package models

import (
	"time"
)

// Release is a catalog item: one pressing of a record
type Release struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	Title            string    `json:"title" gorm:"not null;index"`
	Artist           string    `json:"artist" gorm:"not null;index"`
	Genre            string    `json:"genre" gorm:"index"`
	Label            string    `json:"label"`
	Year             int       `json:"year"`
	CatalogNumber    string    `json:"catalog_number"`
	DiscogsReleaseID string    `json:"discogs_release_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CreateReleaseRequest struct {
	ID               string `json:"id"`
	Title            string `json:"title" binding:"required"`
	Artist           string `json:"artist" binding:"required"`
	Genre            string `json:"genre"`
	Label            string `json:"label"`
	Year             int    `json:"year"`
	CatalogNumber    string `json:"catalog_number"`
	DiscogsReleaseID string `json:"discogs_release_id"`
}

// SearchQuery builds the free-text query used by marketplaces that search by name
func (r *Release) SearchQuery() string {
	q := r.Artist + " " + r.Title
	if r.CatalogNumber != "" {
		q += " " + r.CatalogNumber
	}
	return q + " vinyl"
}
