// Package entity defines the domain models for the instruments feature.
package entity

import "time"

// Instrument is a tradable security whose daily prices are ingested.
type Instrument struct {
	ID          uint      `gorm:"primaryKey"`
	Symbol      string    `gorm:"size:16;not null;uniqueIndex"`
	CompanyName string    `gorm:"size:255;not null"`
	Sector      string    `gorm:"size:100"`
	Exchange    string    `gorm:"size:32;not null"`
	IsActive    bool      `gorm:"not null;default:true"`
	SortKey     int       `gorm:"not null;default:0"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Instrument) TableName() string {
	return "instruments"
}
