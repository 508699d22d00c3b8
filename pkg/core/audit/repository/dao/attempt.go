package dao

import (
	"context"
	"time"

	"mail-password-proxy/pkg/core/audit/model"
)

type AttemptRepository interface {
	Record(ctx context.Context, attempt model.Attempt) error
	CountSince(ctx context.Context, username string, since time.Time) (int64, error)
	Ping(ctx context.Context) error
}
