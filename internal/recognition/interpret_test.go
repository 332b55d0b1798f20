package recognition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/backend"
	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

func boolPtr(b bool) *bool { return &b }

func TestInterpret(t *testing.T) {
	sent := domain.ImageSize{W: 640, H: 480}

	tests := []struct {
		name       string
		resp       *backend.RecognizeResponse
		wantOut    domain.Outcome
		wantFaces  int
		wantLabel  domain.StatusLabel
		wantSource domain.ImageSize
		wantStatus string
	}{
		{
			name:       "nil response",
			resp:       nil,
			wantOut:    domain.OutcomeNoFace,
			wantSource: sent,
			wantStatus: StatusNoFace,
		},
		{
			name:       "detected absent",
			resp:       &backend.RecognizeResponse{Name: "Ana"},
			wantOut:    domain.OutcomeNoFace,
			wantSource: sent,
			wantStatus: StatusNoFace,
		},
		{
			name:       "detected false",
			resp:       &backend.RecognizeResponse{Detected: boolPtr(false), ImageSize: &domain.ImageSize{W: 320, H: 180}},
			wantOut:    domain.OutcomeNoFace,
			wantSource: domain.ImageSize{W: 320, H: 180},
			wantStatus: StatusNoFace,
		},
		{
			name: "known face",
			resp: &backend.RecognizeResponse{
				Detected:  boolPtr(true),
				Faces:     []backend.FaceEntry{{BBox: domain.BoundingBox{X: 10, Y: 20, W: 30, H: 40}, Known: true, Name: "Ana"}},
				ImageSize: &domain.ImageSize{W: 640, H: 360},
			},
			wantOut:    domain.OutcomeDetected,
			wantFaces:  1,
			wantLabel:  domain.StatusLabel{Known: true, Name: "Ana"},
			wantSource: domain.ImageSize{W: 640, H: 360},
			wantStatus: "Aktif, Penghuni (Ana)",
		},
		{
			name: "name alone does not make a face known",
			resp: &backend.RecognizeResponse{
				Detected: boolPtr(true),
				Faces:    []backend.FaceEntry{{BBox: domain.BoundingBox{W: 10, H: 10}, Known: false, Name: "Ana"}},
			},
			wantOut:    domain.OutcomeDetected,
			wantFaces:  1,
			wantLabel:  domain.StatusLabel{Known: false, Name: "Ana"},
			wantSource: sent,
			wantStatus: "Aktif, Unknown (Ana)",
		},
		{
			name: "largest face is primary",
			resp: &backend.RecognizeResponse{
				Detected: boolPtr(true),
				Faces: []backend.FaceEntry{
					{BBox: domain.BoundingBox{W: 10, H: 10}, Known: true, Name: "Small"},
					{BBox: domain.BoundingBox{W: 50, H: 60}, Known: false, Name: ""},
				},
			},
			wantOut:    domain.OutcomeDetected,
			wantFaces:  2,
			wantLabel:  domain.StatusLabel{Known: false, Name: "Unknown"},
			wantSource: sent,
			wantStatus: "Aktif, Unknown (Unknown)",
		},
		{
			name:       "summary only allowed",
			resp:       &backend.RecognizeResponse{Detected: boolPtr(true), Name: "Budi", Status: "MASUK"},
			wantOut:    domain.OutcomeDetected,
			wantLabel:  domain.StatusLabel{Known: true, Name: "Budi"},
			wantSource: sent,
			wantStatus: "Aktif, Penghuni (Budi)",
		},
		{
			name:       "summary only unknown",
			resp:       &backend.RecognizeResponse{Detected: boolPtr(true), Name: "unknown", Status: "MASUK"},
			wantOut:    domain.OutcomeDetected,
			wantLabel:  domain.StatusLabel{Known: false, Name: "unknown"},
			wantSource: sent,
			wantStatus: "Aktif, Unknown (unknown)",
		},
		{
			name:       "invalid image size keeps sent size",
			resp:       &backend.RecognizeResponse{Detected: boolPtr(true), ImageSize: &domain.ImageSize{W: 0, H: 360}},
			wantOut:    domain.OutcomeDetected,
			wantLabel:  domain.StatusLabel{Known: false, Name: "Unknown"},
			wantSource: sent,
			wantStatus: "Aktif, Unknown (Unknown)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interpret(tt.resp, sent)

			assert.Equal(t, tt.wantOut, got.Outcome)
			assert.Len(t, got.Faces, tt.wantFaces)
			assert.Equal(t, tt.wantSource, got.Source)
			assert.Equal(t, tt.wantStatus, StatusText(got))
			if tt.wantOut == domain.OutcomeDetected {
				assert.Equal(t, tt.wantLabel, got.Label)
			}
		})
	}
}

func TestInterpret_PrimaryPointsIntoFaces(t *testing.T) {
	got := Interpret(&backend.RecognizeResponse{
		Detected: boolPtr(true),
		Faces: []backend.FaceEntry{
			{BBox: domain.BoundingBox{W: 20, H: 20}, Known: true, Name: "A"},
			{BBox: domain.BoundingBox{W: 20, H: 20}, Known: true, Name: "B"},
		},
	}, domain.ImageSize{W: 1, H: 1})

	require.NotNil(t, got.Primary)
	assert.Equal(t, "A", got.Primary.Name, "ties keep the first entry")
	assert.Same(t, &got.Faces[0], got.Primary)
}
