package services

import (
	"context"
	"log/slog"

	"github.com/SAP-F-2025/course-marketplace/internal/authz"
	"github.com/SAP-F-2025/course-marketplace/internal/events"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
	"github.com/SAP-F-2025/course-marketplace/internal/repositories"
)

// ===== ACTOR CHECKS =====

func requireLogin(actor *authz.Actor) error {
	if !actor.IsLoggedIn() {
		return ErrMissingCredentials
	}
	if actor.IsBanned() {
		return ErrAccountBanned
	}
	return nil
}

func requireAdmin(actor *authz.Actor, resource, action string) error {
	if err := requireLogin(actor); err != nil {
		return err
	}
	if !actor.CanModerate() {
		return NewPermissionError(actor.UserID, 0, resource, action, "admin role required")
	}
	return nil
}

// mapNotFound swaps a repository miss for the entity's own sentinel
func mapNotFound(err error, notFound error) error {
	if repositories.IsNotFoundError(err) {
		return notFound
	}
	return err
}

// ===== PROJECTIONS =====

func toUserResponse(user *models.User) *UserResponse {
	resp := &UserResponse{
		ID:             user.ID,
		Username:       user.Username,
		Email:          user.Email,
		Description:    user.Description,
		Role:           user.Role,
		CreatedCourses: nonNilUints(user.CreatedCourses),
		Cart:           nonNilUints(user.Cart),
		CreatedAt:      user.CreatedAt,
		OwnedCourses:   user.OwnedCourses,
	}
	return resp
}

func toPublicUserResponse(user *models.User) *PublicUserResponse {
	return &PublicUserResponse{
		ID:             user.ID,
		Username:       user.Username,
		Description:    user.Description,
		CreatedCourses: nonNilUints(user.CreatedCourses),
		CreatedAt:      user.CreatedAt,
	}
}

// projectCourse renders a course for actor. Video ids are only included
// when the actor created the course or is enrolled in it.
func projectCourse(course *models.Course, actor *authz.Actor) *CourseResponse {
	visible := actor.CanViewContent(course)

	sections := make([]CourseSectionResponse, 0, len(course.Content))
	for _, s := range course.Content {
		items := make([]ContentItemResponse, 0, len(s.SectionContent))
		for _, item := range s.SectionContent {
			projected := ContentItemResponse{Title: item.Title, Duration: item.Duration}
			if visible {
				projected.VideoID = item.VideoID
			}
			items = append(items, projected)
		}
		sections = append(sections, CourseSectionResponse{
			SectionTitle:   s.SectionTitle,
			SectionContent: items,
		})
	}

	tags := []string(course.Tags)
	if tags == nil {
		tags = []string{}
	}

	return &CourseResponse{
		ID:             course.ID,
		UserID:         course.UserID,
		Name:           course.Name,
		Author:         course.Author,
		Tags:           tags,
		Description:    course.Description,
		Content:        sections,
		Price:          course.Price,
		Banner:         course.Banner,
		AverageRating:  course.AverageRating,
		ReviewCount:    course.ReviewCount,
		EnrollCount:    course.EnrollCount,
		CreatedAt:      course.CreatedAt,
		LastModified:   course.LastModified,
		ContentVisible: visible,
		CanEdit:        actor.CanManageCourse(course),
	}
}

func projectCourses(courses []*models.Course, actor *authz.Actor) []*CourseResponse {
	out := make([]*CourseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, projectCourse(c, actor))
	}
	return out
}

func nonNilUints(ids []uint) []uint {
	if ids == nil {
		return []uint{}
	}
	return ids
}

// ===== EVENTS =====

// publishEvent is called after commit. A failed publish is logged and never
// changes the outcome of the operation that produced the event.
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, eventType events.EventType, data interface{}) {
	if publisher == nil {
		return
	}
	event := events.NewEvent(eventType, data)
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Error("Failed to publish event",
			"event_type", eventType,
			"event_id", event.ID,
			"error", err)
	}
}
