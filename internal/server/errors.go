package server

import (
	"context"

	"connectrpc.com/connect"
	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/rs/zerolog"
)

var kindCodes = map[domain.ErrorKind]connect.Code{
	domain.KindInvalidArgument: connect.CodeInvalidArgument,
	domain.KindUnavailable:     connect.CodeUnavailable,
	domain.KindNotFound:        connect.CodeNotFound,
	domain.KindFailedPrecond:   connect.CodeFailedPrecondition,
	domain.KindInternal:        connect.CodeInternal,
}

func toConnectError(ctx context.Context, procedure string, err error) error {
	kind := domain.Classify(err)
	event := zerolog.Ctx(ctx).Warn()
	if kind == domain.KindInternal {
		event = zerolog.Ctx(ctx).Error()
	}
	event.Err(err).Str("procedure", procedure).Str("kind", string(kind)).Msg("request failed")
	return connect.NewError(kindCodes[kind], err)
}
