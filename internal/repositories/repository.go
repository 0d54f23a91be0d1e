package repositories

import "context"

// Repository aggregates every entity repository behind one handle
type Repository interface {
	// Identity
	User() UserRepository
	Enrollment() EnrollmentRepository
	RefreshToken() RefreshTokenRepository

	// Catalogue
	Course() CourseRepository
	DraftCourse() DraftCourseRepository
	Review() ReviewRepository

	// Commerce
	Order() OrderRepository

	// Reporting
	Dashboard() DashboardRepository

	// Transaction support. Repositories handed to fn are bound to the
	// transaction; returning an error rolls everything back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
