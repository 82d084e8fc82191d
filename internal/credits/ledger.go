// Package credits keeps each user's remaining word allowance.
package credits

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/01moynul/ai-humanizer/internal/logger"
	"github.com/01moynul/ai-humanizer/internal/metrics"
	"github.com/01moynul/ai-humanizer/internal/models"
)

var (
	ErrInvalidAmount       = errors.New("amount must not be negative")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUpdateFailed        = errors.New("credit update failed")
)

// DefaultCacheTTL bounds how long a cached balance may be served.
const DefaultCacheTTL = 5 * time.Minute

// Cache is the subset of the Redis client the ledger needs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Ledger serializes balance changes per user and fronts the store with a cache.
type Ledger struct {
	store    Store
	cache    Cache
	cacheTTL time.Duration
	log      logger.Logger

	locks sync.Map // userID -> *sync.Mutex
}

// NewLedger creates a ledger. cache may be nil.
func NewLedger(store Store, cache Cache, log logger.Logger) *Ledger {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Ledger{
		store:    store,
		cache:    cache,
		cacheTTL: DefaultCacheTTL,
		log:      log,
	}
}

func (l *Ledger) lock(userID int64) func() {
	m, _ := l.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// TryConsume debits amount words. It returns false with ErrInsufficientCredits
// when the balance does not cover amount, and false with ErrUpdateFailed when
// the store could not persist the debit. Balances are never changed on failure.
func (l *Ledger) TryConsume(ctx context.Context, userID, amount int64) (bool, error) {
	if amount < 0 {
		return false, ErrInvalidAmount
	}
	if amount == 0 {
		return true, nil
	}

	unlock := l.lock(userID)
	defer unlock()

	balance, ok, err := l.store.Debit(ctx, userID, amount, "humanize submission")
	if err != nil {
		metrics.CreditOperations.WithLabelValues(models.CreditTxConsume, "error").Inc()
		l.log.Error("Credit debit failed", map[string]interface{}{
			"user_id": userID,
			"amount":  amount,
			"error":   err.Error(),
		})
		return false, fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}
	if !ok {
		metrics.CreditOperations.WithLabelValues(models.CreditTxConsume, "denied").Inc()
		l.log.Info("Insufficient credits", map[string]interface{}{
			"user_id":   userID,
			"requested": amount,
			"balance":   balance,
		})
		l.setCached(ctx, userID, balance)
		return false, ErrInsufficientCredits
	}

	metrics.CreditOperations.WithLabelValues(models.CreditTxConsume, "ok").Inc()
	metrics.WordsConsumed.Add(float64(amount))
	l.setCached(ctx, userID, balance)
	return true, nil
}

// Grant adds words to a balance and returns the new balance.
func (l *Ledger) Grant(ctx context.Context, userID, amount int64, txType, note string) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}

	unlock := l.lock(userID)
	defer unlock()

	balance, err := l.store.Credit(ctx, userID, amount, txType, note)
	if err != nil {
		metrics.CreditOperations.WithLabelValues(txType, "error").Inc()
		l.log.Error("Credit grant failed", map[string]interface{}{
			"user_id": userID,
			"amount":  amount,
			"type":    txType,
			"error":   err.Error(),
		})
		// a cached value may now be stale
		l.invalidate(ctx, userID)
		return 0, fmt.Errorf("%w: %v", ErrUpdateFailed, err)
	}

	metrics.CreditOperations.WithLabelValues(txType, "ok").Inc()
	l.setCached(ctx, userID, balance)
	return balance, nil
}

// Refund returns words debited for a submission that did not complete.
func (l *Ledger) Refund(ctx context.Context, userID, amount int64, note string) error {
	_, err := l.Grant(ctx, userID, amount, models.CreditTxRefund, note)
	return err
}

// Balance reads through the cache.
func (l *Ledger) Balance(ctx context.Context, userID int64) (int64, error) {
	if l.cache != nil {
		if raw, err := l.cache.Get(ctx, cacheKey(userID)); err == nil {
			if v, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
				metrics.CreditCacheLookups.WithLabelValues("hit").Inc()
				return v, nil
			}
		}
		metrics.CreditCacheLookups.WithLabelValues("miss").Inc()
	}

	balance, err := l.store.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	l.setCached(ctx, userID, balance)
	return balance, nil
}

func (l *Ledger) History(ctx context.Context, userID int64, limit int) ([]models.CreditTransaction, error) {
	return l.store.History(ctx, userID, limit)
}

func (l *Ledger) setCached(ctx context.Context, userID, balance int64) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Set(ctx, cacheKey(userID), balance, l.cacheTTL); err != nil {
		l.log.Warn("Failed to cache balance", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

func (l *Ledger) invalidate(ctx context.Context, userID int64) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Del(ctx, cacheKey(userID)); err != nil {
		l.log.Warn("Failed to invalidate cached balance", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

func cacheKey(userID int64) string {
	return "credits:balance:" + strconv.FormatInt(userID, 10)
}
