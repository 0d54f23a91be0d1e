package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

// Error kinds. Every error a service returns is, or wraps, one of these,
// except unexpected failures which the transport renders as internal errors.
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("resource not found")
	ErrConflict         = errors.New("resource conflict")
	ErrRateLimited      = errors.New("too many requests")
	ErrUpstream         = errors.New("upstream service unavailable")
)

// kindError is a specific error classified under one kind
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKindError(kind error, msg string) error {
	return &kindError{msg: msg, kind: kind}
}

// Identity errors
var (
	ErrUserNotFound       = newKindError(ErrNotFound, "user not found")
	ErrUsernameTaken      = newKindError(ErrConflict, "username already exists")
	ErrEmailTaken         = newKindError(ErrConflict, "email already registered")
	ErrInvalidCredentials = newKindError(ErrUnauthorized, "invalid username or password")
	ErrMissingCredentials = newKindError(ErrUnauthorized, "authentication required")
	ErrInvalidToken       = newKindError(ErrUnauthorized, "invalid or malformed credentials")
	ErrTokenExpired       = newKindError(ErrUnauthorized, "credentials expired")
	// A validly signed refresh token that is missing from the stored set is
	// an authentication failure (401), not a permission one
	ErrRefreshRevoked     = newKindError(ErrUnauthorized, "refresh token revoked or unknown")
	ErrAccountBanned      = newKindError(ErrForbidden, "account is banned")
	ErrWrongPassword      = newKindError(ErrValidationFailed, "old password is incorrect")
	ErrResetRateLimited   = newKindError(ErrRateLimited, "please wait before requesting again")
	ErrResetTokenInvalid  = newKindError(ErrValidationFailed, "invalid or expired token")
	ErrCacheUnavailable   = newKindError(ErrUpstream, "cache unavailable")
)

// Catalogue errors
var (
	ErrCourseNotFound        = newKindError(ErrNotFound, "course not found")
	ErrDraftNotFound         = newKindError(ErrNotFound, "draft course not found")
	ErrResolverUnavailable   = newKindError(ErrUpstream, "video metadata service unavailable")
	ErrVideoNotInCourse      = newKindError(ErrValidationFailed, "video is not part of this course")
	ErrNotEnrolled           = newKindError(ErrForbidden, "you are not enrolled in this course")
	ErrCannotReviewOwnCourse = newKindError(ErrForbidden, "creators cannot review their own course")
	ErrReviewNotFound        = newKindError(ErrNotFound, "review not found")
)

// Commerce errors
var (
	ErrOrderNotFound    = newKindError(ErrNotFound, "order not found")
	ErrAlreadyEnrolled  = newKindError(ErrConflict, "user is already enrolled in this course")
	ErrOwnCourse        = newKindError(ErrConflict, "creators cannot enroll in their own course")
	ErrOrderPending     = newKindError(ErrConflict, "an order for this course is already pending")
	ErrOrderNotPending  = newKindError(ErrConflict, "order is not pending")
	ErrOrderNotRejected = newKindError(ErrConflict, "only rejected orders can be resubmitted")
	ErrInvalidPeriod    = newKindError(ErrValidationFailed, "period must be between 1 and 365 days")
)

// ValidationErrors is the field-level validation failure list
type ValidationErrors = validator.ValidationErrors

// PermissionError reports a denied capability check
type PermissionError struct {
	UserID     uint
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %d cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error { return ErrForbidden }

func NewPermissionError(userID, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// BusinessRuleError is a well-formed request that breaks a domain rule
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}

// RateLimitError refuses a request until RetryAfter has passed
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return ErrResetRateLimited.Error() }
func (e *RateLimitError) Unwrap() error { return ErrResetRateLimited }

// WorkflowError marks a multi-step pipeline that failed at Stage. Nothing
// was committed when RolledBack is set; otherwise the listed ids exist and
// need reconciliation.
type WorkflowError struct {
	Workflow   string
	Stage      string
	DraftID    uint
	OrderID    uint
	CourseID   uint
	RolledBack bool
	Err        error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("%s failed at %s: %v", e.Workflow, e.Stage, e.Err)
}

func (e *WorkflowError) Unwrap() error { return e.Err }
