package models

import (
	"time"

	"gorm.io/datatypes"
)

// ContentItem is a resolved video inside a course section.
type ContentItem struct {
	VideoID  string `json:"video_id"`
	Title    string `json:"title"`
	Duration string `json:"duration"`
}

type CourseSection struct {
	SectionTitle   string        `json:"section_title"`
	SectionContent []ContentItem `json:"section_content"`
}

type Course struct {
	ID          uint                               `json:"id" gorm:"primaryKey"`
	UserID      uint                               `json:"user_id" gorm:"not null;index"`
	Name        string                             `json:"name" gorm:"not null;size:200;index"`
	Author      string                             `json:"author" gorm:"size:100"`
	Tags        datatypes.JSONSlice[string]        `json:"tags"`
	Description string                             `json:"description" gorm:"type:text"`
	Content     datatypes.JSONSlice[CourseSection] `json:"content"`
	Price       float64                            `json:"price" gorm:"not null;default:0;index"`
	Banner      string                             `json:"banner" gorm:"size:500"`

	// Derived aggregates, maintained by the review and order workflows.
	AverageRating float64 `json:"average_rating" gorm:"not null;default:0"`
	ReviewCount   int     `json:"review_count" gorm:"not null;default:0"`
	EnrollCount   int     `json:"enroll_count" gorm:"not null;default:0"`

	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified" gorm:"autoUpdateTime;index"`
}

func (Course) TableName() string {
	return "courses"
}

// ItemCount returns the number of content items across all sections.
func (c *Course) ItemCount() int {
	n := 0
	for _, s := range c.Content {
		n += len(s.SectionContent)
	}
	return n
}
