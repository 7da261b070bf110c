package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"chamberhub/campaigns/internal/logging"
	"chamberhub/campaigns/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrTransient marks a transaction that still conflicted after its retry.
var ErrTransient = errors.New("transient store conflict")

const retryDelay = 25 * time.Millisecond

var transientCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

// IsTransient reports whether err is a lock or serialization conflict that is
// worth replaying the whole transaction for.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientCodes[pgErr.Code]
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return transientCodes[string(pqErr.Code)]
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// RunInTx executes fn inside one transaction. A transient conflict replays the
// transaction once; any other error is returned as is and nothing is applied.
func RunInTx(ctx context.Context, db *gorm.DB, operation string, fn func(tx *gorm.DB) error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), 1), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}

		metrics.Get().TxRetriesTotal.WithLabelValues(operation).Inc()
		logging.Warn("Transaction conflict",
			"operation", operation,
			"attempt", attempt,
			"error", err.Error(),
		)
		return err
	}, policy)

	if err != nil && IsTransient(err) {
		return errors.Join(ErrTransient, err)
	}
	return err
}
