package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/authz"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

type userService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewUserService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) UserService {
	return &userService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== PROFILE =====

func (s *userService) GetProfile(ctx context.Context, actor *authz.Actor) (*UserResponse, error) {
	if err := requireLogin(actor); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByIDWithEnrollments(ctx, nil, actor.UserID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return toUserResponse(user), nil
}

func (s *userService) GetPublicProfile(ctx context.Context, id uint) (*PublicUserResponse, error) {
	user, err := s.repo.User().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}
	return toPublicUserResponse(user), nil
}

// UpdateProgress records a watched video on the caller's enrollment.
// Progress is the share of the course's items marked completed.
func (s *userService) UpdateProgress(ctx context.Context, actor *authz.Actor, courseID uint, req *UpdateProgressRequest) (*models.Enrollment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := requireLogin(actor); err != nil {
		return nil, err
	}

	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound)
	}

	if !courseHasVideo(course, req.VideoID) {
		return nil, ErrVideoNotInCourse
	}

	var enrollment *models.Enrollment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		enrollment, err = s.repo.Enrollment().Get(ctx, tx, actor.UserID, courseID)
		if err != nil {
			return mapNotFound(err, ErrNotEnrolled)
		}

		videoID := req.VideoID
		enrollment.LastWatchedVideo = &videoID
		enrollment.CompletedVideos = applyCompletion(enrollment.CompletedVideos, videoID, req.Completed)
		enrollment.Progress = completionPercent(course, enrollment.CompletedVideos)

		return s.repo.Enrollment().Update(ctx, tx, enrollment)
	})
	if err != nil {
		return nil, err
	}

	return enrollment, nil
}

func courseHasVideo(course *models.Course, videoID string) bool {
	for _, s := range course.Content {
		for _, item := range s.SectionContent {
			if item.VideoID == videoID {
				return true
			}
		}
	}
	return false
}

func applyCompletion(completed []string, videoID string, done bool) []string {
	out := make([]string, 0, len(completed)+1)
	found := false
	for _, id := range completed {
		if id == videoID {
			found = true
			if !done {
				continue
			}
		}
		out = append(out, id)
	}
	if done && !found {
		out = append(out, videoID)
	}
	return out
}

// completionPercent only counts ids still present in the course content
func completionPercent(course *models.Course, completed []string) float64 {
	total := course.ItemCount()
	if total == 0 {
		return 0
	}
	done := 0
	for _, id := range completed {
		if courseHasVideo(course, id) {
			done++
		}
	}
	return float64(done) / float64(total) * 100
}

// ===== ADMIN =====

func (s *userService) List(ctx context.Context, actor *authz.Actor, query string, page PageRequest) (*UserListResponse, error) {
	if err := requireAdmin(actor, "user", "list"); err != nil {
		return nil, err
	}

	page = page.normalize()
	users, total, err := s.repo.User().List(ctx, nil, repositories.UserFilters{
		Query:  query,
		Limit:  page.Size,
		Offset: page.offset(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	resp := &UserListResponse{
		Users: make([]*UserResponse, 0, len(users)),
		Total: total,
		Page:  page.Page,
		Size:  page.Size,
	}
	for _, u := range users {
		resp.Users = append(resp.Users, toUserResponse(u))
	}
	return resp, nil
}

func (s *userService) SetRole(ctx context.Context, actor *authz.Actor, id uint, req *UpdateRoleRequest) (*UserResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := requireAdmin(actor, "user", "set_role"); err != nil {
		return nil, err
	}
	if err := s.refuseSelf(actor, id, "change role"); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.User().UpdateRole(ctx, tx, id, req.Role); err != nil {
			return err
		}
		// A banned account keeps no renewable sessions
		if req.Role == models.RoleBanned {
			return s.repo.RefreshToken().DeleteByUser(ctx, tx, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	s.logger.Info("User role changed",
		"user_id", id,
		"from", user.Role,
		"to", req.Role,
		"admin_id", actor.UserID)

	user.Role = req.Role
	return toUserResponse(user), nil
}

func (s *userService) Ban(ctx context.Context, actor *authz.Actor, id uint) (*UserResponse, error) {
	return s.SetRole(ctx, actor, id, &UpdateRoleRequest{Role: models.RoleBanned})
}

// Delete removes the account and everything only it refers to: refresh
// tokens, enrollments, drafts and orders. Published courses and reviews
// stay and keep the dangling owner id.
func (s *userService) Delete(ctx context.Context, actor *authz.Actor, id uint) error {
	if err := requireAdmin(actor, "user", "delete"); err != nil {
		return err
	}
	if err := s.refuseSelf(actor, id, "delete"); err != nil {
		return err
	}

	var enrolledCourses []uint
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if _, err := txRepo.User().GetByID(ctx, nil, id); err != nil {
			return mapNotFound(err, ErrUserNotFound)
		}
		if err := txRepo.RefreshToken().DeleteByUser(ctx, nil, id); err != nil {
			return err
		}

		enrollments, err := txRepo.Enrollment().ListByUser(ctx, nil, id)
		if err != nil {
			return err
		}
		for _, e := range enrollments {
			enrolledCourses = append(enrolledCourses, e.CourseID)
		}
		if err := txRepo.Enrollment().DeleteByUser(ctx, nil, id); err != nil {
			return err
		}
		if err := txRepo.Course().RecountEnrollments(ctx, nil, enrolledCourses); err != nil {
			return err
		}
		if err := txRepo.DraftCourse().DeleteByUser(ctx, nil, id); err != nil {
			return err
		}
		if err := txRepo.Order().DeleteByUser(ctx, nil, id); err != nil {
			return err
		}
		return txRepo.User().Delete(ctx, nil, id)
	})
	if err != nil {
		return err
	}

	s.repo.Course().InvalidateCache(ctx, enrolledCourses...)

	s.logger.Info("User deleted", "user_id", id, "admin_id", actor.UserID)
	return nil
}

func (s *userService) refuseSelf(actor *authz.Actor, id uint, action string) error {
	if actor.UserID != id {
		return nil
	}
	return NewBusinessRuleError("admin_self_modification",
		fmt.Sprintf("admins cannot %s their own account", action),
		map[string]interface{}{"user_id": id})
}
