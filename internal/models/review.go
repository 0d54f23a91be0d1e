package models

import "time"

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 1000
)

type Review struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CourseID  uint      `json:"course_id" gorm:"not null;uniqueIndex:idx_review_course_user"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_review_course_user;index"`
	Rating    int       `json:"rating" gorm:"not null"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

func (Review) TableName() string {
	return "reviews"
}

// ReviewStats are the aggregates persisted on a course.
type ReviewStats struct {
	AverageRating float64 `json:"avg_rating"`
	TotalReviews  int     `json:"total_reviews"`
}

// ReviewWithUser is a review annotated with its author's username.
type ReviewWithUser struct {
	Review
	Username string `json:"username"`
}
