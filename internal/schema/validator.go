// Package schema validates backend payloads before they reach the
// session and retrieval components.
package schema

import (
	"errors"
	"fmt"
	"math"
	"net/url"

	"github.com/ak7270090/Real-time-Voice-AI-Orchestration/internal/models"
)

var (
	ErrMissingField = errors.New("schema: missing required field")
	ErrInvalidField = errors.New("schema: invalid field")
	ErrUnknownType  = errors.New("schema: unsupported payload type")
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks a decoded backend payload.
func (v *Validator) Validate(payload any) error {
	switch p := payload.(type) {
	case models.Credential:
		return validateCredential(p)
	case *models.Credential:
		return validateCredential(*p)
	case models.QueryResponse:
		return validateQueryResponse(p)
	case *models.QueryResponse:
		return validateQueryResponse(*p)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownType, payload)
	}
}

func validateCredential(c models.Credential) error {
	if c.Token == "" {
		return fmt.Errorf("%w: token", ErrMissingField)
	}
	if c.ServerURL == "" {
		return fmt.Errorf("%w: url", ErrMissingField)
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("%w: url: %v", ErrInvalidField, err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("%w: url scheme %q", ErrInvalidField, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url host", ErrInvalidField)
	}
	return nil
}

func validateQueryResponse(r models.QueryResponse) error {
	for i, res := range r.Results {
		if math.IsNaN(res.SimilarityScore) || math.IsInf(res.SimilarityScore, 0) {
			return fmt.Errorf("%w: results[%d].similarity_score", ErrInvalidField, i)
		}
	}
	return nil
}
