package flows

import (
	"context"

	"github.com/MrEthical07/goSession/transport"
)

// Deps aggregates the dependency sets wired once by the root client.
type Deps struct {
	Send    SendDeps
	Refresh CoordinatorDeps
}

// Service is the centralized flow runner built once by the root client.
type Service struct {
	deps        Deps
	coordinator *Coordinator
}

// New returns a flow service. The send flow's ObtainFreshCredential is bound to
// the service's own coordinator when left nil.
func New(deps Deps) *Service {
	s := &Service{
		deps:        deps,
		coordinator: NewCoordinator(deps.Refresh),
	}
	if s.deps.Send.ObtainFreshCredential == nil {
		s.deps.Send.ObtainFreshCredential = s.coordinator.ObtainFreshCredential
	}
	return s
}

// Initialized reports whether the service has been wired with a transport.
func (s *Service) Initialized() bool {
	return s != nil && s.deps.Send.Transport != nil
}

func (s *Service) Send(ctx context.Context, req *transport.Request) SendResult {
	return RunSend(ctx, req, s.deps.Send)
}

func (s *Service) ObtainFreshCredential(ctx context.Context) Outcome {
	return s.coordinator.ObtainFreshCredential(ctx)
}

func (s *Service) Coordinator() *Coordinator {
	return s.coordinator
}
