package models

// AllModels lists every persisted model in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Enrollment{},
		&RefreshToken{},
		&Course{},
		&DraftCourse{},
		&Order{},
		&Review{},
	}
}
