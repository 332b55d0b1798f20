package domain

import "strings"

// BoundingBox is expressed in the pixel space of the image the backend analysed.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func (b BoundingBox) Area() int {
	return b.W * b.H
}

type ImageSize struct {
	W int `json:"w"`
	H int `json:"h"`
}

func (s ImageSize) Valid() bool {
	return s.W > 0 && s.H > 0
}

// FaceBox is one detected face with the backend's known/unknown verdict.
type FaceBox struct {
	Box        BoundingBox `json:"bbox"`
	Known      bool        `json:"known"`
	Name       string      `json:"name"`
	Status     string      `json:"status,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
}

// DisplayName falls back to "Unknown" for unnamed entries.
func (f FaceBox) DisplayName() string {
	if strings.TrimSpace(f.Name) == "" {
		return UnknownName
	}
	return f.Name
}

type Outcome int

const (
	OutcomeNoFace Outcome = iota
	OutcomeDetected
)

func (o Outcome) String() string {
	if o == OutcomeDetected {
		return "detected"
	}
	return "no_face"
}

const (
	UnknownName = "Unknown"

	StatusAllowed = "MASUK"
	StatusDenied  = "DITOLAK"
)

// RecognitionResult is the interpreted answer for one tick. Faces is empty
// for OutcomeNoFace. Source holds the dimensions the boxes refer to.
type RecognitionResult struct {
	Outcome Outcome     `json:"outcome"`
	Faces   []FaceBox   `json:"faces"`
	Name    string      `json:"name,omitempty"`
	Status  string      `json:"status,omitempty"`
	Source  ImageSize   `json:"image_size"`
	Primary *FaceBox    `json:"primary,omitempty"`
	Label   StatusLabel `json:"label"`
}

func (r RecognitionResult) Detected() bool {
	return r.Outcome == OutcomeDetected
}

// StatusLabel is the coarse classification shown next to the live feed.
type StatusLabel struct {
	Known bool   `json:"known"`
	Name  string `json:"name"`
}

func (l StatusLabel) Category() string {
	if l.Known {
		return CategoryResident
	}
	return CategoryUnknown
}
