package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/course-marketplace/internal/authz"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

// ===== REQUEST DTOs =====

// Use business validator types
type RegisterRequest = validator.RegisterRequest
type LoginRequest = validator.LoginRequest
type RefreshRequest = validator.RefreshRequest
type ChangePasswordRequest = validator.ChangePasswordRequest
type PasswordResetRequest = validator.PasswordResetRequest
type PasswordResetConfirmRequest = validator.PasswordResetConfirmRequest

type UpdateRoleRequest = validator.UpdateRoleRequest
type UpdateProgressRequest = validator.UpdateProgressRequest

type CourseSearchRequest = validator.CourseSearchRequest
type UpdateCourseRequest = validator.UpdateCourseRequest

type DraftSectionRequest = validator.DraftSectionRequest
type CreateDraftRequest = validator.CreateDraftRequest
type UpdateDraftRequest = validator.UpdateDraftRequest

type CreateOrderRequest = validator.CreateOrderRequest
type ResubmitOrderRequest = validator.ResubmitOrderRequest
type ProcessOrderRequest = validator.ProcessOrderRequest

type UpsertReviewRequest = validator.UpsertReviewRequest

// PageRequest is the page/size pair accepted by admin listings
type PageRequest struct {
	Page int `form:"page" json:"page"`
	Size int `form:"size" json:"size"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.Size
}

// ===== RESPONSE DTOs =====

type UserResponse struct {
	ID             uint            `json:"id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	Description    string          `json:"description"`
	Role           models.UserRole `json:"role"`
	CreatedCourses []uint          `json:"created_courses"`
	Cart           []uint          `json:"cart"`
	CreatedAt      time.Time       `json:"created_at"`

	OwnedCourses []models.Enrollment `json:"owned_courses,omitempty"`
}

// PublicUserResponse omits contact and enrollment details
type PublicUserResponse struct {
	ID             uint      `json:"id"`
	Username       string    `json:"username"`
	Description    string    `json:"description"`
	CreatedCourses []uint    `json:"created_courses"`
	CreatedAt      time.Time `json:"created_at"`
}

type UserListResponse struct {
	Users []*UserResponse `json:"users"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         *UserResponse `json:"user"`
}

// Session is the outcome of the credential gate. RenewedAccessToken is set
// when an expired access token was renewed from the refresh token.
type Session struct {
	Actor              *authz.Actor
	RenewedAccessToken string
}

// ContentItemResponse is a course item as seen by a particular actor.
// VideoID is empty unless the actor may view the course content.
type ContentItemResponse struct {
	VideoID  string `json:"video_id,omitempty"`
	Title    string `json:"title"`
	Duration string `json:"duration"`
}

type CourseSectionResponse struct {
	SectionTitle   string                `json:"section_title"`
	SectionContent []ContentItemResponse `json:"section_content"`
}

type CourseResponse struct {
	ID             uint                    `json:"id"`
	UserID         uint                    `json:"user_id"`
	Name           string                  `json:"name"`
	Author         string                  `json:"author"`
	Tags           []string                `json:"tags"`
	Description    string                  `json:"description"`
	Content        []CourseSectionResponse `json:"content"`
	Price          float64                 `json:"price"`
	Banner         string                  `json:"banner"`
	AverageRating  float64                 `json:"average_rating"`
	ReviewCount    int                     `json:"review_count"`
	EnrollCount    int                     `json:"enroll_count"`
	CreatedAt      time.Time               `json:"created_at"`
	LastModified   time.Time               `json:"last_modified"`
	ContentVisible bool                    `json:"content_visible"`
	CanEdit        bool                    `json:"can_edit"`
}

type CourseListResponse struct {
	Courses []*CourseResponse `json:"courses"`
	Total   int               `json:"total"`
}

// EnrolledCourseResponse pairs a course with the caller's progress in it
type EnrolledCourseResponse struct {
	Course     *CourseResponse    `json:"course"`
	Enrollment *models.Enrollment `json:"enrollment"`
}

type DraftListResponse struct {
	Drafts []*models.DraftCourse `json:"drafts"`
	Total  int64                 `json:"total"`
	Page   int                   `json:"page"`
	Size   int                   `json:"size"`
}

// DraftApprovalResponse reports the published course and the references
// that could not be resolved and were left out.
type DraftApprovalResponse struct {
	Course        *CourseResponse `json:"course"`
	ResolvedItems int             `json:"resolved_items"`
	DroppedItems  []string        `json:"dropped_items"`
}

type OrderListResponse struct {
	Orders []*models.OrderWithDetails `json:"orders"`
	Total  int64                      `json:"total"`
	Page   int                        `json:"page"`
	Size   int                        `json:"size"`
}

type ReviewListResponse struct {
	Reviews []*models.ReviewWithUser `json:"reviews"`
	Total   int                      `json:"total"`
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, req *RefreshRequest) (*AuthResponse, error)
	Logout(ctx context.Context, req *RefreshRequest) error
	ChangePassword(ctx context.Context, actor *authz.Actor, req *ChangePasswordRequest) error

	// ResolveSession backs the credential gate
	ResolveSession(ctx context.Context, accessToken, refreshToken string) (*Session, error)
}

type PasswordResetService interface {
	RequestReset(ctx context.Context, req *PasswordResetRequest) error
	ResetPassword(ctx context.Context, req *PasswordResetConfirmRequest) error
}

type UserService interface {
	GetProfile(ctx context.Context, actor *authz.Actor) (*UserResponse, error)
	GetPublicProfile(ctx context.Context, id uint) (*PublicUserResponse, error)
	UpdateProgress(ctx context.Context, actor *authz.Actor, courseID uint, req *UpdateProgressRequest) (*models.Enrollment, error)

	// Admin
	List(ctx context.Context, actor *authz.Actor, query string, page PageRequest) (*UserListResponse, error)
	SetRole(ctx context.Context, actor *authz.Actor, id uint, req *UpdateRoleRequest) (*UserResponse, error)
	Ban(ctx context.Context, actor *authz.Actor, id uint) (*UserResponse, error)
	Delete(ctx context.Context, actor *authz.Actor, id uint) error
}

type CourseService interface {
	Search(ctx context.Context, req *CourseSearchRequest) (*CourseListResponse, error)
	GetByID(ctx context.Context, id uint, actor *authz.Actor) (*CourseResponse, error)
	MyCreated(ctx context.Context, actor *authz.Actor) (*CourseListResponse, error)
	MyEnrolled(ctx context.Context, actor *authz.Actor) ([]*EnrolledCourseResponse, error)
	Update(ctx context.Context, id uint, req *UpdateCourseRequest, actor *authz.Actor) (*CourseResponse, error)
	Delete(ctx context.Context, id uint, actor *authz.Actor) error
}

type DraftService interface {
	Create(ctx context.Context, req *CreateDraftRequest, actor *authz.Actor) (*models.DraftCourse, error)
	Get(ctx context.Context, id uint, actor *authz.Actor) (*models.DraftCourse, error)
	Update(ctx context.Context, id uint, req *UpdateDraftRequest, actor *authz.Actor) (*models.DraftCourse, error)
	Delete(ctx context.Context, id uint, actor *authz.Actor) error
	ListMine(ctx context.Context, actor *authz.Actor, page PageRequest) (*DraftListResponse, error)

	// Admin
	ListAll(ctx context.Context, actor *authz.Actor, page PageRequest) (*DraftListResponse, error)
	Approve(ctx context.Context, id uint, actor *authz.Actor) (*DraftApprovalResponse, error)
	Reject(ctx context.Context, id uint, actor *authz.Actor) error
}

type OrderService interface {
	Create(ctx context.Context, req *CreateOrderRequest, actor *authz.Actor) (*models.Order, error)
	ListMine(ctx context.Context, actor *authz.Actor, page PageRequest) (*OrderListResponse, error)
	Resubmit(ctx context.Context, id uint, req *ResubmitOrderRequest, actor *authz.Actor) (*models.Order, error)

	// Admin
	ListAll(ctx context.Context, actor *authz.Actor, status *models.OrderStatus, page PageRequest) (*OrderListResponse, error)
	Process(ctx context.Context, id uint, req *ProcessOrderRequest, actor *authz.Actor) (*models.Order, error)
	ExportAll(ctx context.Context, actor *authz.Actor, w io.Writer) error
}

type ReviewService interface {
	Upsert(ctx context.Context, req *UpsertReviewRequest, actor *authz.Actor) (*models.Review, error)
	ListByCourse(ctx context.Context, courseID uint) (*ReviewListResponse, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.Review, error)
	Stats(ctx context.Context, courseID uint) (*models.ReviewStats, error)
}

// DashboardService reports marketplace-wide figures to admins
type DashboardService interface {
	Stats(ctx context.Context, actor *authz.Actor, period int) (*DashboardStatsResponse, error)
}

// VideoResolver turns an external video reference into a content item.
// It returns youtube.ErrUnresolvable for references that do not exist.
type VideoResolver interface {
	Resolve(ctx context.Context, ref string) (*models.ContentItem, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Initialize(ctx context.Context) error

	Auth() AuthService
	PasswordReset() PasswordResetService
	User() UserService
	Course() CourseService
	Draft() DraftService
	Order() OrderService
	Review() ReviewService
	Dashboard() DashboardService

	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
