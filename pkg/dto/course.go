package dto

import "time"

// AttachmentRequest carries one uploaded file. Data is base64 in JSON.
type AttachmentRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

type CreateCourseRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Videos      []string            `json:"videos"`
	Attachments []AttachmentRequest `json:"attachments"`
}

type UpdateCourseRequest struct {
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Videos          []string            `json:"videos"`
	RemoveMaterials []string            `json:"removeMaterials"`
	Attachments     []AttachmentRequest `json:"attachments"`
}

type RemoveAttachmentRequest struct {
	URL string `json:"url"`
}

type CourseResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Videos         []string  `json:"videos"`
	MaterialMedico []string  `json:"materialMedico"`
	CreatedAt      time.Time `json:"createdAt"`
}

// DivergenceResponse reports attachments whose files were deleted while the
// course still lists them.
type DivergenceResponse struct {
	ErrorResponse
	CourseID string   `json:"courseId"`
	URLs     []string `json:"urls"`
	Step     string   `json:"step"`
}
