package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/loomhaven/order-cli/internal/model"
	"github.com/loomhaven/order-cli/internal/resilience"
	"github.com/loomhaven/order-cli/internal/store"
	"github.com/loomhaven/order-cli/pkg/airtable"
)

// PushSummary counts the outcomes of a push run.
type PushSummary struct {
	Orders   int
	Pushed   int
	Failed   int
	Enqueued int
}

// PushSlip parses a packing slip, groups its lines into orders, and pushes
// each order to Airtable. Orders that fail are enqueued for later retry
// when a store is configured; the push continues with the next order.
func (p *Pipeline) PushSlip(ctx context.Context, slipPath string) (*PushSummary, error) {
	result, err := p.ParseSlip(ctx, slipPath, false)
	if err != nil {
		return nil, err
	}
	return p.pushOrders(ctx, model.GroupOrders(result.Lines))
}

func (p *Pipeline) pushOrders(ctx context.Context, orders []model.Order) (*PushSummary, error) {
	if p.airtable == nil {
		return nil, eris.New("pipeline: no Airtable client configured")
	}
	log := zap.L()
	summary := &PushSummary{Orders: len(orders)}

	breaker := p.newPushBreaker()
	for _, order := range orders {
		result, err := p.pushOne(ctx, breaker, toAirtableOrder(order))
		if err != nil {
			summary.Failed++
			log.Error("push failed",
				zap.String("order_id", order.OrderID),
				zap.String("error_type", classifyPushError(err)),
				zap.Error(err))
			if p.store != nil {
				if qErr := p.enqueueFailedPush(ctx, order, err); qErr != nil {
					log.Error("failed to enqueue order for retry",
						zap.String("order_id", order.OrderID),
						zap.Error(qErr))
				} else {
					summary.Enqueued++
				}
			}
			continue
		}
		summary.Pushed++
		log.Info("pushed order",
			zap.String("order_id", order.OrderID),
			zap.String("record_id", result.OrderRecordID),
			zap.Int("line_items", len(result.LineRecordIDs)))
	}
	return summary, nil
}

// RetryFailed drains the failed-push queue: every entry whose next retry
// time has passed is pushed again. Successes are removed from the queue;
// failures are rescheduled with a longer backoff. Entries whose payload no
// longer unmarshals are dropped.
func (p *Pipeline) RetryFailed(ctx context.Context) (*PushSummary, error) {
	if p.airtable == nil {
		return nil, eris.New("pipeline: no Airtable client configured")
	}
	if p.store == nil {
		return nil, eris.New("pipeline: no store configured")
	}
	log := zap.L()

	entries, err := p.store.DequeueFailedPushes(ctx, store.PushFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: dequeue failed pushes")
	}
	summary := &PushSummary{Orders: len(entries)}
	if len(entries) == 0 {
		log.Info("no failed pushes due for retry")
		return summary, nil
	}

	breaker := p.newPushBreaker()
	for _, entry := range entries {
		var order model.Order
		if err := json.Unmarshal(entry.Payload, &order); err != nil {
			summary.Failed++
			log.Error("dropping failed push with corrupt payload",
				zap.String("id", entry.ID),
				zap.String("order_id", entry.OrderID),
				zap.Error(err))
			if rmErr := p.store.RemoveFailedPush(ctx, entry.ID); rmErr != nil {
				log.Warn("failed to remove corrupt entry",
					zap.String("id", entry.ID), zap.Error(rmErr))
			}
			continue
		}

		result, err := p.pushOne(ctx, breaker, toAirtableOrder(order))
		if err != nil {
			summary.Failed++
			attempt := entry.RetryCount + 1
			next := time.Now().UTC().Add(dlqBackoff(attempt))
			if incErr := p.store.IncrementPushRetry(ctx, entry.ID, next, err.Error()); incErr != nil {
				log.Warn("failed to record retry failure",
					zap.String("id", entry.ID), zap.Error(incErr))
			}
			if attempt >= entry.MaxRetries {
				log.Warn("push retries exhausted, order parked",
					zap.String("order_id", entry.OrderID),
					zap.Int("retry_count", attempt))
			} else {
				log.Warn("push retry failed",
					zap.String("order_id", entry.OrderID),
					zap.Int("retry_count", attempt),
					zap.Time("next_retry_at", next),
					zap.Error(err))
			}
			continue
		}

		summary.Pushed++
		log.Info("retried push succeeded",
			zap.String("order_id", entry.OrderID),
			zap.String("record_id", result.OrderRecordID))
		if rmErr := p.store.RemoveFailedPush(ctx, entry.ID); rmErr != nil {
			log.Warn("failed to remove completed entry",
				zap.String("id", entry.ID), zap.Error(rmErr))
		}
	}
	return summary, nil
}

// pushOne sends a single order through the retry policy and the circuit
// breaker. Retries happen inside the breaker so one order counts as one
// call against the failure threshold.
func (p *Pipeline) pushOne(ctx context.Context, breaker *resilience.CircuitBreaker, order airtable.Order) (*airtable.PushResult, error) {
	tables := airtable.PushTables{
		Orders:    p.cfg.Airtable.OrdersTable,
		LineItems: p.cfg.Airtable.ItemsTable,
		BatchSize: p.cfg.Airtable.BatchSize,
	}
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.MaxAttempts = p.cfg.Airtable.MaxRetries
	retryCfg.ShouldRetry = isTransientPush
	retryCfg.OnRetry = resilience.RetryLogger("airtable", "push order")

	return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (*airtable.PushResult, error) {
		return resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*airtable.PushResult, error) {
			return airtable.PushOrder(ctx, p.airtable, tables, order)
		})
	})
}

func (p *Pipeline) newPushBreaker() *resilience.CircuitBreaker {
	cfg := resilience.DefaultCircuitBreakerConfig()
	cfg.ShouldTrip = isTransientPush
	cfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("airtable circuit state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	}
	return resilience.NewCircuitBreaker(cfg)
}

func (p *Pipeline) enqueueFailedPush(ctx context.Context, order model.Order, pushErr error) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return eris.Wrapf(err, "pipeline: marshal order %s", order.OrderID)
	}
	now := time.Now().UTC()
	return p.store.EnqueueFailedPush(ctx, model.FailedPush{
		OrderID:      order.OrderID,
		Payload:      payload,
		Error:        pushErr.Error(),
		ErrorType:    classifyPushError(pushErr),
		MaxRetries:   p.cfg.Airtable.MaxRetries,
		NextRetryAt:  now.Add(dlqBackoff(0)),
		CreatedAt:    now,
		LastFailedAt: now,
	})
}

func toAirtableOrder(o model.Order) airtable.Order {
	out := airtable.Order{
		OrderID:   o.OrderID,
		OrderDate: o.OrderDate,
		BuyerName: o.BuyerName,
		Lines:     make([]airtable.LineItem, len(o.Lines)),
	}
	for i, line := range o.Lines {
		out.Lines[i] = airtable.LineItem{
			BuyerName:         line.BuyerName,
			CustomizationName: line.CustomizationName,
			Quantity:          line.Quantity,
			BlanketColor:      line.BlanketColor,
			ThreadColor:       line.ThreadColor,
			Beanie:            line.Beanie,
			GiftBox:           line.GiftBox,
			GiftNote:          line.GiftNote,
			GiftMessage:       line.GiftMessage,
		}
	}
	return out
}

// classifyPushError buckets a push failure for the retry queue. Airtable
// API errors are classified by status code. A tripped breaker counts as
// transient since the service may recover before the next drain.
func classifyPushError(err error) string {
	var apiErr *airtable.APIError
	if errors.As(err, &apiErr) {
		if resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return "transient"
		}
		return "permanent"
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "transient"
	}
	return resilience.ClassifyError(err)
}

func isTransientPush(err error) bool {
	return classifyPushError(err) == "transient"
}

// dlqBackoff doubles the wait between queue retries, starting at five
// minutes and capped at six hours.
func dlqBackoff(retryCount int) time.Duration {
	const ceiling = 6 * time.Hour
	backoff := 5 * time.Minute
	for i := 0; i < retryCount; i++ {
		backoff *= 2
		if backoff >= ceiling {
			return ceiling
		}
	}
	return backoff
}
