package server

import (
	"context"
	"errors"

	"aram-scrim/internal/balancer"
	"aram-scrim/internal/domain"
	"aram-scrim/internal/service"
	"aram-scrim/internal/session"

	"connectrpc.com/connect"
)

var codeFor = []struct {
	target error
	code   connect.Code
}{
	{session.ErrSessionNotFound, connect.CodeNotFound},
	{session.ErrNotInSession, connect.CodeNotFound},
	{session.ErrNoFormedSession, connect.CodeNotFound},
	{domain.ErrNotFound, connect.CodeNotFound},
	{session.ErrInvalidParticipant, connect.CodeInvalidArgument},
	{session.ErrInvalidSide, connect.CodeInvalidArgument},
	{service.ErrInvalidPlayer, connect.CodeInvalidArgument},
	{service.ErrInvalidAdjustment, connect.CodeInvalidArgument},
	{service.ErrInvalidSeason, connect.CodeInvalidArgument},
	{service.ErrInvalidIncident, connect.CodeInvalidArgument},
	{session.ErrSessionNotOpen, connect.CodeFailedPrecondition},
	{session.ErrSessionNotFormed, connect.CodeFailedPrecondition},
	{session.ErrAlreadyJoined, connect.CodeAlreadyExists},
	{session.ErrAlreadyReported, connect.CodeAlreadyExists},
	{domain.ErrAlreadyExists, connect.CodeAlreadyExists},
	{session.ErrPlayerNotEligible, connect.CodePermissionDenied},
	{session.ErrLookupTimeout, connect.CodeDeadlineExceeded},
	{session.ErrLookupFailed, connect.CodeUnavailable},
	{context.DeadlineExceeded, connect.CodeDeadlineExceeded},
	{context.Canceled, connect.CodeCanceled},
}

// toConnectError maps service errors onto RPC status codes. Anything
// unrecognised is internal.
func toConnectError(err error) error {
	var capErr *session.InvalidCapacityError
	var inputErr *balancer.InvalidInputError
	if errors.As(err, &capErr) || errors.As(err, &inputErr) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	for _, m := range codeFor {
		if errors.Is(err, m.target) {
			return connect.NewError(m.code, err)
		}
	}
	return connect.NewError(connect.CodeInternal, err)
}
