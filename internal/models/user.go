package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type UserRole string

const (
	RoleUser   UserRole = "user"
	RoleAdmin  UserRole = "admin"
	RoleBanned UserRole = "banned"
)

// IsValid reports whether r is one of the known roles.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleBanned:
		return true
	}
	return false
}

// ParseUserRole converts raw input into a UserRole, rejecting unknown values.
func ParseUserRole(s string) (UserRole, error) {
	r := UserRole(s)
	if !r.IsValid() {
		return "", fmt.Errorf("unknown user role %q", s)
	}
	return r, nil
}

// Value rejects unknown roles at the storage boundary.
func (r UserRole) Value() (driver.Value, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("unknown user role %q", string(r))
	}
	return string(r), nil
}

func (r *UserRole) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into UserRole", value)
	}
	parsed, err := ParseUserRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

type User struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	Username     string   `json:"username" gorm:"uniqueIndex;not null;size:50"`
	Email        string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	PasswordHash string   `json:"-" gorm:"column:password;not null"`
	Description  string   `json:"description" gorm:"type:text"`
	Role         UserRole `json:"role" gorm:"type:varchar(20);not null;default:user;index"`

	// Course ids published from this user's approved drafts, in approval order.
	CreatedCourses datatypes.JSONSlice[uint] `json:"created_courses"`
	// Legacy cart; advisory only, never consulted for enrollment.
	Cart datatypes.JSONSlice[uint] `json:"cart"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	OwnedCourses []Enrollment `json:"owned_courses,omitempty" gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return "users"
}

// Enrollment is one entry of a user's owned courses.
type Enrollment struct {
	ID               uint                        `json:"id" gorm:"primaryKey"`
	UserID           uint                        `json:"user_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID         uint                        `json:"course_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course;index"`
	Progress         float64                     `json:"progress" gorm:"not null;default:0"`
	LastWatchedVideo *string                     `json:"last_watched_video" gorm:"size:64"`
	CompletedVideos  datatypes.JSONSlice[string] `json:"completed_videos"`
	EnrolledAt       time.Time                   `json:"enrolled_at" gorm:"not null;autoCreateTime"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// RefreshToken stores the digest of an issued refresh credential. A user's
// rows form the set of credentials still accepted for renewal.
type RefreshToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	TokenHash string    `json:"-" gorm:"uniqueIndex;not null;size:64"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
