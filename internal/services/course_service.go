package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-marketplace/internal/authz"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
	"github.com/SAP-F-2025/course-marketplace/internal/validator"
)

const defaultSearchLimit = 50

type courseService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewCourseService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) CourseService {
	return &courseService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== CATALOGUE READS =====

// Search lists the catalogue. Listings are always projected for an
// anonymous viewer; detail pages are personalised by GetByID.
func (s *courseService) Search(ctx context.Context, req *CourseSearchRequest) (*CourseListResponse, error) {
	if req == nil {
		req = &CourseSearchRequest{}
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit == 0 {
		limit = defaultSearchLimit
	}

	courses, err := s.repo.Course().Search(ctx, nil, repositories.CourseFilters{
		Query:     strings.TrimSpace(req.Query),
		MinPrice:  req.MinPrice,
		MaxPrice:  req.MaxPrice,
		MinRating: req.MinRating,
		Sort:      repositories.CourseSort(req.Sort),
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search courses: %w", err)
	}

	return &CourseListResponse{
		Courses: projectCourses(courses, nil),
		Total:   len(courses),
	}, nil
}

func (s *courseService) GetByID(ctx context.Context, id uint, actor *authz.Actor) (*CourseResponse, error) {
	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound)
	}
	return projectCourse(course, actor), nil
}

// MyCreated returns the actor's published courses in approval order
func (s *courseService) MyCreated(ctx context.Context, actor *authz.Actor) (*CourseListResponse, error) {
	if err := requireLogin(actor); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByID(ctx, nil, actor.UserID)
	if err != nil {
		return nil, mapNotFound(err, ErrUserNotFound)
	}

	courses, err := s.repo.Course().GetByIDs(ctx, nil, user.CreatedCourses)
	if err != nil {
		return nil, fmt.Errorf("failed to load created courses: %w", err)
	}

	byID := make(map[uint]int, len(courses))
	for i, c := range courses {
		byID[c.ID] = i
	}
	ordered := make([]*CourseResponse, 0, len(courses))
	for _, id := range user.CreatedCourses {
		if i, ok := byID[id]; ok {
			ordered = append(ordered, projectCourse(courses[i], actor))
		}
	}

	return &CourseListResponse{Courses: ordered, Total: len(ordered)}, nil
}

// MyEnrolled returns every enrolled course with the actor's progress
func (s *courseService) MyEnrolled(ctx context.Context, actor *authz.Actor) ([]*EnrolledCourseResponse, error) {
	if err := requireLogin(actor); err != nil {
		return nil, err
	}

	enrollments, err := s.repo.Enrollment().ListByUser(ctx, nil, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollments: %w", err)
	}

	ids := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.CourseID)
		actor.MarkEnrolled(e.CourseID)
	}
	courses, err := s.repo.Course().GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrolled courses: %w", err)
	}

	byID := make(map[uint]int, len(courses))
	for i, c := range courses {
		byID[c.ID] = i
	}

	out := make([]*EnrolledCourseResponse, 0, len(enrollments))
	for _, e := range enrollments {
		i, ok := byID[e.CourseID]
		if !ok {
			// course deleted after enrollment
			continue
		}
		out = append(out, &EnrolledCourseResponse{
			Course:     projectCourse(courses[i], actor),
			Enrollment: e,
		})
	}
	return out, nil
}

// ===== MUTATIONS =====

// Update changes descriptive fields. Content and the derived aggregates are
// not writable here.
func (s *courseService) Update(ctx context.Context, id uint, req *UpdateCourseRequest, actor *authz.Actor) (*CourseResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if err := requireLogin(actor); err != nil {
		return nil, err
	}

	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound)
	}
	if !actor.CanManageCourse(course) {
		return nil, NewPermissionError(actor.UserID, id, "course", "update", "not owner or admin")
	}

	fields := make(map[string]interface{})
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Author != nil {
		fields["author"] = *req.Author
	}
	if req.Tags != nil {
		fields["tags"] = datatypes.JSONSlice[string](*req.Tags)
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Price != nil {
		fields["price"] = *req.Price
	}
	if req.Banner != nil {
		fields["banner"] = *req.Banner
	}

	if len(fields) > 0 {
		if err := s.repo.Course().UpdateFields(ctx, nil, id, fields); err != nil {
			return nil, mapNotFound(err, ErrCourseNotFound)
		}
		s.logger.Info("Course updated", "course_id", id, "user_id", actor.UserID)
	}

	updated, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapNotFound(err, ErrCourseNotFound)
	}
	return projectCourse(updated, actor), nil
}

// Delete removes a course with its reviews and unlinks it from the owner.
// Enrollments in it are kept as history.
func (s *courseService) Delete(ctx context.Context, id uint, actor *authz.Actor) error {
	if err := requireLogin(actor); err != nil {
		return err
	}

	course, err := s.repo.Course().GetByID(ctx, nil, id)
	if err != nil {
		return mapNotFound(err, ErrCourseNotFound)
	}
	if !actor.CanManageCourse(course) {
		return NewPermissionError(actor.UserID, id, "course", "delete", "not owner or admin")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Review().DeleteByCourse(ctx, tx, id); err != nil {
			return err
		}
		if err := s.repo.Course().Delete(ctx, tx, id); err != nil {
			return mapNotFound(err, ErrCourseNotFound)
		}
		if err := s.repo.User().RemoveCreatedCourse(ctx, tx, course.UserID, id); err != nil && !repositories.IsNotFoundError(err) {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.repo.Course().InvalidateCache(ctx, id)

	s.logger.Info("Course deleted", "course_id", id, "user_id", actor.UserID)
	return nil
}
