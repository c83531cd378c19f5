package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/kelechianya/complypoint-backend/pkg/db/models"
	"github.com/kelechianya/complypoint-backend/pkg/enums"
	"github.com/kelechianya/complypoint-backend/pkg/logger"
	"github.com/kelechianya/complypoint-backend/pkg/metrics"
)

// ErrChannelNotConfigured tells the dispatcher to skip a channel without
// counting it as a delivery failure.
var ErrChannelNotConfigured = errors.New("channel not configured")

// Delivery is one notification to fan out across all configured channels.
type Delivery struct {
	User         *models.User
	Type         enums.NotificationType
	Title        string
	Message      string
	SubmissionID *uuid.UUID
}

// Channel delivers a notification over one transport.
type Channel interface {
	Name() enums.NotificationChannel
	Deliver(ctx context.Context, delivery Delivery) error
}

// Dispatcher fans a delivery out to every channel concurrently. Each channel
// gets bounded exponential-backoff retries; failures are aggregated for the
// caller to log and never abort the other channels.
type Dispatcher struct {
	channels    []Channel
	metrics     *metrics.DispatchMetrics
	logg        *logger.Logger
	timeout     time.Duration
	maxAttempts int
}

// NewDispatcher builds the fanout dispatcher.
func NewDispatcher(channels []Channel, dispatchMetrics *metrics.DispatchMetrics, logg *logger.Logger, timeout time.Duration, maxAttempts int) (*Dispatcher, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("at least one channel required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("dispatch timeout must be positive")
	}
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive")
	}
	return &Dispatcher{
		channels:    channels,
		metrics:     dispatchMetrics,
		logg:        logg,
		timeout:     timeout,
		maxAttempts: maxAttempts,
	}, nil
}

// Dispatch delivers to all channels and returns the combined channel errors.
func (d *Dispatcher) Dispatch(ctx context.Context, delivery Delivery) error {
	if delivery.User == nil {
		return fmt.Errorf("delivery user required")
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for _, channel := range d.channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			if err := d.deliverWithRetry(ctx, ch, delivery); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
				mu.Unlock()
			}
		}(channel)
	}
	wg.Wait()
	return multierr.Combine(errs...)
}

func (d *Dispatcher) deliverWithRetry(ctx context.Context, channel Channel, delivery Delivery) error {
	name := string(channel.Name())
	backoff := retry.WithMaxRetries(uint64(d.maxAttempts-1), retry.NewExponential(500*time.Millisecond))

	start := time.Now()
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		deliverErr := channel.Deliver(ctx, delivery)
		if deliverErr == nil {
			return nil
		}
		if errors.Is(deliverErr, ErrChannelNotConfigured) {
			return deliverErr
		}
		return retry.RetryableError(deliverErr)
	})
	if errors.Is(err, ErrChannelNotConfigured) {
		return nil
	}

	d.metrics.ObserveDuration(name, time.Since(start))
	if err != nil {
		d.metrics.IncFailure(name)
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"channel": name,
			"user_id": delivery.User.ID.String(),
		})
		d.logg.Error(logCtx, "notification delivery failed", err)
		return err
	}
	d.metrics.IncSuccess(name)
	return nil
}
