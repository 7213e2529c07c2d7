package supervisor

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/loteria-client/internal/failure"
)

// withAuth runs op and, if the server rejects the credentials, refreshes them
// once and retries op once. Concurrent 401s share a single refresh call.
func (s *Supervisor) withAuth(ctx context.Context, op func(context.Context) error) error {
	err := op(ctx)
	if failure.KindOf(err) != failure.KindAuth {
		return err
	}

	_, refreshErr, shared := s.refreshes.Do("refresh", func() (any, error) {
		return nil, s.auth.Refresh(ctx)
	})
	if refreshErr != nil {
		return failure.Wrap(failure.KindAuth, MsgSessionExpired, refreshErr)
	}
	s.log.Debug("credentials refreshed", zap.Bool("shared", shared))

	return op(ctx)
}
