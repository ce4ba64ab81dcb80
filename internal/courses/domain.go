// Package courses holds the course and lesson catalog. This surface is
// thin database glue; the interesting guarantees live in the middleware
// pipeline and the enrollment package.
package courses

import "time"

// Course is an instructor-owned unit of content.
type Course struct {
	ID           string
	Title        string
	Slug         string
	Description  string
	InstructorID string
	Published    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Lesson is an ordered piece of course content.
type Lesson struct {
	ID        string
	CourseID  string
	Title     string
	Position  int
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
