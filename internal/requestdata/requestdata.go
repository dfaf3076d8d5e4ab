package requestdata

import (
	"context"

	"github.com/google/uuid"
)

var requestDataKey = struct{}{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey)
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

// RequestData is the authenticated identity attached to a request by the
// auth middleware. SessionID identifies the playback session the client
// carries in its token; it may be empty for older tokens.
type RequestData struct {
	TokenString string
	UserID      uuid.UUID
	SessionID   string
}
