package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

// UploadFaces calls POST /upload/faces with one multipart request holding
// the resident name and every sample. train=false defers model training.
func (c *Client) UploadFaces(ctx context.Context, name string, samples []Sample, train bool) (*domain.UploadResult, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("upload faces: no samples")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("name", name); err != nil {
		return nil, fmt.Errorf("write name field: %w", err)
	}

	for _, sample := range samples {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="faces"; filename=%q`, sample.Filename))
		header.Set("Content-Type", domain.JPEGMime)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("create part %s: %w", sample.Filename, err)
		}
		if _, err := part.Write(sample.Data); err != nil {
			return nil, fmt.Errorf("write part %s: %w", sample.Filename, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	path := "/upload/faces"
	if !train {
		path += "?train=0"
	}

	var result domain.UploadResult
	if err := c.do(ctx, http.MethodPost, path, &body, writer.FormDataContentType(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Train calls POST /train
func (c *Client) Train(ctx context.Context, maxImagesPerPerson int) error {
	req := TrainRequest{MaxImagesPerPerson: maxImagesPerPerson}
	var resp TrainResponse
	if err := c.doJSON(ctx, http.MethodPost, "/train", req, &resp); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	return nil
}
