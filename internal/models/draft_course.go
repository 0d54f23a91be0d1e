package models

import (
	"time"

	"gorm.io/datatypes"
)

// DraftSection holds raw external video references awaiting resolution.
type DraftSection struct {
	SectionTitle   string   `json:"section_title"`
	SectionContent []string `json:"section_content"`
}

type DraftCourse struct {
	ID          uint                              `json:"id" gorm:"primaryKey"`
	UserID      uint                              `json:"user_id" gorm:"not null;index"`
	Name        string                            `json:"name" gorm:"not null;size:200"`
	Author      string                            `json:"author" gorm:"size:100"`
	Tags        datatypes.JSONSlice[string]       `json:"tags"`
	Description string                            `json:"description" gorm:"type:text"`
	Content     datatypes.JSONSlice[DraftSection] `json:"content"`
	Price       float64                           `json:"price" gorm:"not null;default:0"`
	Banner      string                            `json:"banner" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DraftCourse) TableName() string {
	return "draft_courses"
}

// ItemCount returns the number of raw references across all sections.
func (d *DraftCourse) ItemCount() int {
	n := 0
	for _, s := range d.Content {
		n += len(s.SectionContent)
	}
	return n
}
