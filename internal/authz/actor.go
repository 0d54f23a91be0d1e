// Package authz holds the capability predicates every mutating or
// content-revealing operation consults. A nil *Actor is anonymous and every
// predicate is safe to call on it.
package authz

import "github.com/SAP-F-2025/course-marketplace/internal/models"

// Actor is the identity resolved from a request's credentials
type Actor struct {
	UserID   uint
	Username string
	Email    string
	Role     models.UserRole

	enrolled map[uint]struct{}
}

// NewActor builds an actor from a user. Enrollments must be preloaded for
// IsEnrolled to see them.
func NewActor(user *models.User) *Actor {
	if user == nil {
		return nil
	}

	a := &Actor{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		enrolled: make(map[uint]struct{}, len(user.OwnedCourses)),
	}
	for _, e := range user.OwnedCourses {
		a.enrolled[e.CourseID] = struct{}{}
	}
	return a
}

// MarkEnrolled records an enrollment created after the actor was resolved
func (a *Actor) MarkEnrolled(courseID uint) {
	if a == nil {
		return
	}
	if a.enrolled == nil {
		a.enrolled = make(map[uint]struct{})
	}
	a.enrolled[courseID] = struct{}{}
}

// EnrolledCourseIDs returns the enrolled course ids in no particular order
func (a *Actor) EnrolledCourseIDs() []uint {
	if a == nil {
		return nil
	}
	ids := make([]uint, 0, len(a.enrolled))
	for id := range a.enrolled {
		ids = append(ids, id)
	}
	return ids
}

// ===== PREDICATES =====

func (a *Actor) IsLoggedIn() bool {
	return a != nil && a.UserID != 0
}

func (a *Actor) IsAdmin() bool {
	return a.IsLoggedIn() && a.Role == models.RoleAdmin
}

func (a *Actor) IsBanned() bool {
	return a.IsLoggedIn() && a.Role == models.RoleBanned
}

func (a *Actor) IsCourseCreator(course *models.Course) bool {
	return a.IsLoggedIn() && course != nil && course.UserID == a.UserID
}

func (a *Actor) IsDraftCreator(draft *models.DraftCourse) bool {
	return a.IsLoggedIn() && draft != nil && draft.UserID == a.UserID
}

func (a *Actor) IsOrderOwner(order *models.Order) bool {
	return a.IsLoggedIn() && order != nil && order.UserID == a.UserID
}

func (a *Actor) IsEnrolled(courseID uint) bool {
	if !a.IsLoggedIn() {
		return false
	}
	_, ok := a.enrolled[courseID]
	return ok
}

// ===== COMPOSITIONS =====
// Admin may stand in for an owner. An owner never gains admin rights.

func (a *Actor) CanManageCourse(course *models.Course) bool {
	return a.IsAdmin() || a.IsCourseCreator(course)
}

// CanManageDraft is owner only; admins act on drafts through approve/reject
func (a *Actor) CanManageDraft(draft *models.DraftCourse) bool {
	return a.IsDraftCreator(draft)
}

func (a *Actor) CanViewContent(course *models.Course) bool {
	return course != nil && (a.IsCourseCreator(course) || a.IsEnrolled(course.ID))
}

func (a *Actor) CanModerate() bool {
	return a.IsAdmin()
}
