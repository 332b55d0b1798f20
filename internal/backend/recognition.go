package backend

import (
	"context"
	"net/http"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

// RecognizeFrame calls POST /recognition/frame once. Callers tick again
// instead of retrying.
func (c *Client) RecognizeFrame(ctx context.Context, frame domain.SampledFrame) (*RecognizeResponse, error) {
	req := RecognizeRequest{Image: frame.DataURL()}

	var resp RecognizeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/recognition/frame", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
