package validator

import "github.com/SAP-F-2025/course-marketplace/internal/models"

// ===== AUTH =====

type RegisterRequest struct {
	Username    string `json:"username" validate:"required,username"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,password"`
	Description string `json:"description" validate:"omitempty,max=1000"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required,max=72"`
	NewPassword string `json:"new_password" validate:"required,password"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required,hexadecimal,len=64"`
	NewPassword string `json:"new_password" validate:"required,password"`
}

// ===== USERS =====

type UpdateRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required,user_role"`
}

type UpdateProgressRequest struct {
	VideoID   string `json:"video_id" validate:"required,max=64"`
	Completed bool   `json:"completed"`
}

// ===== COURSES =====

type CourseSearchRequest struct {
	Query     string   `form:"query" json:"query" validate:"omitempty,max=200"`
	MinPrice  *float64 `form:"min" json:"min" validate:"omitempty,gte=0"`
	MaxPrice  *float64 `form:"max" json:"max" validate:"omitempty,gte=0"`
	MinRating *float64 `form:"rating" json:"rating" validate:"omitempty,gte=0,lte=5"`
	Sort      string   `form:"sort" json:"sort" validate:"omitempty,oneof=price_asc price_desc enroll_desc created_asc created_desc"`
	Limit     int      `form:"limit" json:"limit" validate:"omitempty,min=1,max=100"`
}

type UpdateCourseRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=200"`
	Author      *string   `json:"author" validate:"omitempty,max=100"`
	Tags        *[]string `json:"tags" validate:"omitempty,course_tags"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	Price       *float64  `json:"price" validate:"omitempty,gte=0"`
	Banner      *string   `json:"banner" validate:"omitempty,max=500"`
}

// ===== DRAFTS =====

type DraftSectionRequest struct {
	SectionTitle   string   `json:"section_title" validate:"required,max=200"`
	SectionContent []string `json:"section_content" validate:"max=200,dive,required,max=500"`
}

type CreateDraftRequest struct {
	Name        string                `json:"name" validate:"required,min=1,max=200"`
	Author      string                `json:"author" validate:"omitempty,max=100"`
	Tags        []string              `json:"tags" validate:"omitempty,course_tags"`
	Description string                `json:"description" validate:"omitempty,max=5000"`
	Content     []DraftSectionRequest `json:"content" validate:"max=100,dive"`
	Price       float64               `json:"price" validate:"gte=0"`
	Banner      string                `json:"banner" validate:"omitempty,max=500"`
}

type UpdateDraftRequest struct {
	Name        *string                `json:"name" validate:"omitempty,min=1,max=200"`
	Author      *string                `json:"author" validate:"omitempty,max=100"`
	Tags        *[]string              `json:"tags" validate:"omitempty,course_tags"`
	Description *string                `json:"description" validate:"omitempty,max=5000"`
	Content     *[]DraftSectionRequest `json:"content" validate:"omitempty,max=100,dive"`
	Price       *float64               `json:"price" validate:"omitempty,gte=0"`
	Banner      *string                `json:"banner" validate:"omitempty,max=500"`
}

// ===== ORDERS =====

type CreateOrderRequest struct {
	CourseID      uint                 `json:"course_id" validate:"required"`
	Amount        float64              `json:"amount" validate:"gte=0"`
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required,payment_method"`
	PaymentProof  *string              `json:"payment_proof" validate:"omitempty,max=500"`
	Note          *string              `json:"note" validate:"omitempty,max=1000"`
}

type ResubmitOrderRequest struct {
	Note *string `json:"note" validate:"omitempty,max=1000"`
}

type ProcessOrderRequest struct {
	Action        models.OrderAction `json:"action" validate:"required,order_action"`
	NoteFromAdmin *string            `json:"note_from_admin" validate:"omitempty,max=1000"`
}

// ===== REVIEWS =====

type UpsertReviewRequest struct {
	CourseID uint   `json:"course_id" validate:"required"`
	Rating   int    `json:"rating" validate:"required,rating"`
	Comment  string `json:"comment" validate:"omitempty,max=1000"`
}
