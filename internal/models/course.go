package models

import "time"

// Course is the courses/{id} document. Materials are Blob Store download URLs.
type Course struct {
	ID          string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Videos      []string  `json:"videos"`
	Materials   []string  `json:"materialMedico"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Attachment is a file an administrator uploads with a course.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// CourseDraft is a new course as submitted by an administrator.
type CourseDraft struct {
	Title       string
	Description string
	Videos      []string
	Attachments []Attachment
}

// CourseEdit replaces a course's text and videos, drops the listed material
// URLs and appends new attachments.
type CourseEdit struct {
	Title           string
	Description     string
	Videos          []string
	RemoveMaterials []string
	Attachments     []Attachment
}
