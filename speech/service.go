package speech

import (
	"context"
	"fmt"
)

// Service routes each synthesis request to the local or cloud
// synthesizer by the request's mode. Requests without a mode use the
// default fixed at construction.
type Service struct {
	defaultMode string
	local       Synthesizer
	cloud       Synthesizer
}

// NewService builds a router. The synthesizer for a mode that is never
// requested may be nil.
func NewService(defaultMode string, local, cloud Synthesizer) *Service {
	return &Service{defaultMode: defaultMode, local: local, cloud: cloud}
}

// Synthesize dispatches to the requested mode's synthesizer.
func (s *Service) Synthesize(ctx context.Context, req Request) error {
	mode := req.Mode
	if mode == "" {
		mode = s.defaultMode
	}
	switch mode {
	case ModeLocal:
		if s.local == nil {
			return fmt.Errorf("local speech synthesizer not configured")
		}
		return s.local.Synthesize(ctx, req)
	case ModeCloud:
		if s.cloud == nil {
			return fmt.Errorf("cloud speech synthesizer not configured")
		}
		return s.cloud.Synthesize(ctx, req)
	default:
		return fmt.Errorf("unknown speech mode %q", mode)
	}
}
