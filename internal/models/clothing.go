package models

import "time"

type Clothing struct {
	ID          string    `json:"clothing_id"`
	IsPublic    bool      `json:"is_public"`
	Name        string    `json:"name"`
	Category    Category  `json:"category"`
	Color       string    `json:"color"`
	ImageID     string    `json:"image_id"`
	ImageURL    string    `json:"image_url,omitempty"`
	UserID      string    `json:"user_id"`
	Seasons     []Season  `json:"seasons"`
	Tags        []Tag     `json:"tags"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Outfit struct {
	ID             string    `json:"outfit_id"`
	IsPublic       bool      `json:"is_public"`
	IsFavorite     bool      `json:"is_favorite"`
	Name           string    `json:"name"`
	UserID         string    `json:"user_id"`
	ClothingIDs    []string  `json:"clothing_ids"`
	Seasons        []Season  `json:"seasons"`
	Tags           []Tag     `json:"tags"`
	Description    *string   `json:"description"`
	CollageImageID *string   `json:"collage_image_id,omitempty"`
	CollageURL     string    `json:"collage_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
