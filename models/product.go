package models

import "time"

type Product struct {
	ID          uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string      `gorm:"not null" json:"name"`
	Price       float64     `gorm:"not null" json:"price"`
	Description string      `json:"description"`
	ImageURL    string      `json:"image_url"`
	Category    string      `gorm:"default:'Shoes'" json:"category"`
	CreatedBy   uint        `gorm:"index" json:"created_by"`
	Sizes       []SizeStock `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"sizes"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TotalStock sums quantities across all sizes. Sizes must be preloaded.
func (p *Product) TotalStock() int {
	total := 0
	for _, s := range p.Sizes {
		total += s.Quantity
	}
	return total
}

// SizeFor returns the stock row for a size label, or nil.
func (p *Product) SizeFor(size string) *SizeStock {
	for i := range p.Sizes {
		if p.Sizes[i].Size == size {
			return &p.Sizes[i]
		}
	}
	return nil
}

type SizeStock struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint   `gorm:"index;not null" json:"product_id"`
	Size      string `gorm:"not null" json:"size"`
	Quantity  int    `gorm:"default:0" json:"quantity"`
}
