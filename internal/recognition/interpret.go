// Package recognition interprets backend verdicts and drives the periodic
// live recognition task.
package recognition

import (
	"fmt"
	"strings"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/backend"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

// Dashboard status texts.
const (
	StatusNoFace          = "Aktif (Tidak ada wajah)"
	StatusRecognitionErr  = "Aktif (Recognition Error)"
	StatusBackendNotReady = "Aktif (Backend belum siap)"
	StatusStopped         = "Tidak aktif"
)

// Interpret turns a raw response into a tagged result. fallback is the size
// of the frame that was sent; it applies only when the backend omits
// image_size.
func Interpret(resp *backend.RecognizeResponse, fallback domain.ImageSize) domain.RecognitionResult {
	result := domain.RecognitionResult{
		Outcome: domain.OutcomeNoFace,
		Source:  fallback,
	}
	if resp == nil {
		return result
	}
	if resp.ImageSize != nil && resp.ImageSize.Valid() {
		result.Source = *resp.ImageSize
	}
	if resp.Detected == nil || !*resp.Detected {
		return result
	}

	result.Outcome = domain.OutcomeDetected
	result.Name = resp.Name
	result.Status = resp.Status
	result.Faces = make([]domain.FaceBox, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		result.Faces = append(result.Faces, domain.FaceBox{
			Box:        f.BBox,
			Known:      f.Known,
			Name:       f.Name,
			Status:     f.Status,
			Confidence: f.Confidence,
		})
	}

	result.Primary = primaryFace(result.Faces)
	result.Label = labelFor(result)
	return result
}

// primaryFace picks the largest box; ties keep the earlier entry.
func primaryFace(faces []domain.FaceBox) *domain.FaceBox {
	var primary *domain.FaceBox
	for i := range faces {
		if primary == nil || faces[i].Box.Area() > primary.Box.Area() {
			primary = &faces[i]
		}
	}
	return primary
}

func labelFor(r domain.RecognitionResult) domain.StatusLabel {
	if r.Primary != nil {
		return domain.StatusLabel{Known: r.Primary.Known, Name: r.Primary.DisplayName()}
	}

	// Summary-only answers carry no per-face flag; the backend's access
	// decision is the only verdict available.
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = domain.UnknownName
	}
	known := !strings.EqualFold(name, domain.UnknownName) && r.Status == domain.StatusAllowed
	return domain.StatusLabel{Known: known, Name: name}
}

// StatusText is the dashboard line for a result.
func StatusText(r domain.RecognitionResult) string {
	if !r.Detected() {
		return StatusNoFace
	}
	category := domain.UnknownName
	if r.Label.Known {
		category = "Penghuni"
	}
	return fmt.Sprintf("Aktif, %s (%s)", category, r.Label.Name)
}
