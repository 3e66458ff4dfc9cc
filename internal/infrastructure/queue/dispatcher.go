package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
	"github.com/99minutos/iam-engine/internal/pkg/metrics"
)

const (
	defaultWorkers      = 4
	channelBuffer       = 256
	defaultDrainTimeout = 5 * time.Second
)

// Publisher delivers one audit event to its final destination.
type Publisher interface {
	Publish(ctx context.Context, event domain.AuditEvent) error
}

// Dispatcher routes audit events to a fixed set of workers using consistent
// hashing on the user id, guaranteeing per-user event ordering. It implements
// ports.AuditSink.
//
// Once its context is cancelled every worker publishes what is still buffered
// within drainTimeout. Events it cannot deliver in time, and events recorded
// after shutdown, are counted as dropped.
type Dispatcher struct {
	workers      []chan domain.AuditEvent
	publisher    Publisher
	log          zerolog.Logger
	drainTimeout time.Duration
	stopped      atomic.Bool
	wg           sync.WaitGroup
}

var _ ports.AuditSink = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, publisher Publisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:      make([]chan domain.AuditEvent, numWorkers),
		publisher:    publisher,
		log:          log,
		drainTimeout: defaultDrainTimeout,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuditEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain and stop when ctx is
// cancelled; Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(len(d.workers))
	for i, ch := range d.workers {
		go func() {
			defer d.wg.Done()
			d.runWorker(ctx, i, ch)
		}()
	}
}

// Wait blocks until every started worker has drained its queue and exited.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Record queues an event for the worker responsible for its user. It never
// blocks: when that worker's buffer is full the event is dropped and counted.
func (d *Dispatcher) Record(_ context.Context, event domain.AuditEvent) {
	if d.stopped.Load() {
		metrics.AuditEventsDroppedTotal.Inc()
		d.log.Warn().Str("type", string(event.Type)).Str("user_id", event.UserID).Msg("audit dispatcher stopped, event dropped")
		return
	}
	idx := d.shardIndex(event.UserID)
	select {
	case d.workers[idx] <- event:
		metrics.AuditEventsTotal.WithLabelValues(string(event.Type)).Inc()
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.AuditEventsDroppedTotal.Inc()
		d.log.Warn().Str("type", string(event.Type)).Str("user_id", event.UserID).Msg("audit queue full, event dropped")
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuditEvent) {
	depth := metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			d.stopped.Store(true)
			d.drain(ctx, id, ch)
			depth.Set(0)
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			d.publish(ctx, id, event)
		}
	}
}

// drain publishes the events still buffered in ch without waiting for new
// ones. ctx is already cancelled, so delivery runs on a detached context
// bounded by drainTimeout.
func (d *Dispatcher) drain(ctx context.Context, id int, ch <-chan domain.AuditEvent) {
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.drainTimeout)
	defer cancel()

	published, dropped := 0, 0
	for {
		select {
		case event := <-ch:
			if drainCtx.Err() != nil {
				metrics.AuditEventsDroppedTotal.Inc()
				dropped++
				continue
			}
			d.publish(drainCtx, id, event)
			published++
		default:
			if published > 0 || dropped > 0 {
				d.log.Info().Int("worker_id", id).Int("published", published).Int("dropped", dropped).Msg("audit queue drained")
			}
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, id int, event domain.AuditEvent) {
	if err := d.publisher.Publish(ctx, event); err != nil {
		d.log.Error().Err(err).
			Str("type", string(event.Type)).
			Str("user_id", event.UserID).
			Int("worker_id", id).
			Msg("audit event delivery failed")
	}
}
