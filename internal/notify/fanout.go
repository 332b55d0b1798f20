package notify

import (
	"errors"

	"github.com/saturnino-fabrica-de-software/homeguard/internal/domain"
)

// Sink receives recognition results.
type Sink interface {
	Publish(result domain.RecognitionResult) error
}

// Fanout forwards every result to all sinks. One failing sink does not stop
// the others; their errors are joined.
type Fanout []Sink

func (f Fanout) Publish(result domain.RecognitionResult) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
