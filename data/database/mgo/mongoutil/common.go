package mongoutil

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	defaultMaxPoolSize = 100
	defaultMaxRetry    = 3
)

func buildMongoURI(config *Config, authSource string) string {
	credentials := ""
	if config.Username != "" && config.Password != "" {
		credentials = fmt.Sprintf("%s:%s@", config.Username, config.Password)
	}
	return fmt.Sprintf(
		"mongodb://%s%s/%s?authSource=%s&maxPoolSize=%d",
		credentials,
		strings.Join(config.Address, ","),
		config.Database,
		authSource,
		config.MaxPoolSize,
	)
}

// shouldRetry: auth failures (13 Unauthorized, 18 AuthenticationFailed) are permanent.
func shouldRetry(ctx context.Context, err error) bool {
	select {
	case <-ctx.Done():
		return false
	default:
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) {
			return cmdErr.Code != 13 && cmdErr.Code != 18
		}
		return true
	}
}

// IsDuplicate reports a unique-index violation.
func IsDuplicate(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// InsertErr maps an insert error: a taken _id becomes ErrDuplicate, anything
// else a persistence failure.
func InsertErr(err error, what, id string) error {
	switch {
	case err == nil:
		return nil
	case IsDuplicate(err):
		return errs.ErrDuplicate.WrapMsg(what, "id", id)
	}
	return errs.Persistence(err, "insert "+what)
}
