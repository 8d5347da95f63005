package models

import "time"

// Product represents a product in the store.
// Price is expressed in currency minor units.
type Product struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string    `json:"name" gorm:"type:varchar(200);not null"`
	Description  string    `json:"description" gorm:"type:text"`
	Image        string    `json:"image" gorm:"type:varchar(500)"`
	Category     string    `json:"category" gorm:"type:varchar(100);index"`
	Price        int64     `json:"price" gorm:"not null"`
	CountInStock int       `json:"countInStock" gorm:"not null;default:0;check:count_in_stock >= 0"`
	Rating       float64   `json:"rating" gorm:"not null;default:0"`
	NumReviews   int       `json:"numReviews" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
