package backend

import "github.com/saturnino-fabrica-de-software/homeguard/internal/domain"

// RecognizeRequest for POST /recognition/frame
type RecognizeRequest struct {
	Image string `json:"image"` // data URL
}

// RecognizeResponse from POST /recognition/frame. Detected is a pointer
// because an absent flag means "no face".
type RecognizeResponse struct {
	Detected   *bool             `json:"detected"`
	Name       string            `json:"name,omitempty"`
	Status     string            `json:"status,omitempty"`
	Confidence *float64          `json:"confidence,omitempty"`
	Faces      []FaceEntry       `json:"faces"`
	ImageSize  *domain.ImageSize `json:"image_size,omitempty"`
}

// FaceEntry is one element of RecognizeResponse.Faces.
type FaceEntry struct {
	BBox       domain.BoundingBox `json:"bbox"`
	Known      bool               `json:"known"`
	Name       string             `json:"name"`
	Status     string             `json:"status,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
}

// TrainRequest for POST /train
type TrainRequest struct {
	MaxImagesPerPerson int `json:"max_images_per_person"`
}

// TrainResponse from POST /train; the backend's summary is kept opaque.
type TrainResponse struct {
	Message string `json:"message,omitempty"`
}

// Sample is one image part of an upload batch.
type Sample struct {
	Filename string
	Data     []byte
}

type errorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
