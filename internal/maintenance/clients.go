package maintenance

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrDeadlock is the transient failure CheckForDeadlocks reports.
var ErrDeadlock = errors.New("deadlock detected")

// Topics cleaned by a forward queue run.
var Topics = []string{
	"user-events",
	"stock-events",
	"trade-events",
	"notification-events",
	"maintenance-events",
}

type Database interface {
	Init(ctx context.Context) error
	ModifyIndexTriggers(ctx context.Context) error
	UpdateIndexes(ctx context.Context) error
	VacuumDatabase(ctx context.Context) error
	CheckForDeadlocks(ctx context.Context) error
	StopHungQueries(ctx context.Context) error
}

type Queue interface {
	Init(ctx context.Context) error
	CleanTopic(ctx context.Context, topic string) error
	ValidateCleaned(ctx context.Context) error
	CleanupTopics(ctx context.Context) error
	StopConsumers(ctx context.Context) error
}

type ObjectStore interface {
	Init(ctx context.Context) error
	MoveLargeBlobsToGlacier(ctx context.Context) error
	CleanUpOldBlobs(ctx context.Context) error
	StopHungUploads(ctx context.Context) error
}

// Simulator stands in for the external systems: every call waits a fixed
// latency (multiplied by Scale) and the deadlock check fails one time in three.
type Simulator struct {
	Scale float64

	mu   sync.Mutex
	rng  *rand.Rand
	wait func(ctx context.Context, d time.Duration) error
}

func NewSimulator(scale float64, seed int64) *Simulator {
	if scale < 0 {
		scale = 0
	}
	return &Simulator{Scale: scale, rng: rand.New(rand.NewSource(seed)), wait: sleep}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Simulator) delay(ctx context.Context, d time.Duration) error {
	return s.wait(ctx, time.Duration(float64(d)*s.Scale))
}

func (s *Simulator) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// SimDatabase simulates the database runbook calls.
type SimDatabase struct{ Sim *Simulator }

func (d SimDatabase) Init(ctx context.Context) error { return d.Sim.delay(ctx, time.Second) }
func (d SimDatabase) ModifyIndexTriggers(ctx context.Context) error {
	return d.Sim.delay(ctx, 5*time.Second)
}
func (d SimDatabase) UpdateIndexes(ctx context.Context) error { return d.Sim.delay(ctx, 8*time.Second) }
func (d SimDatabase) VacuumDatabase(ctx context.Context) error { return d.Sim.delay(ctx, 3*time.Second) }
func (d SimDatabase) StopHungQueries(ctx context.Context) error { return d.Sim.delay(ctx, 8*time.Second) }

func (d SimDatabase) CheckForDeadlocks(ctx context.Context) error {
	if err := d.Sim.delay(ctx, 4*time.Second); err != nil {
		return err
	}
	if d.Sim.roll() < 1.0/3 {
		return ErrDeadlock
	}
	return nil
}

// SimQueue simulates the message queue runbook calls.
type SimQueue struct{ Sim *Simulator }

func (q SimQueue) Init(ctx context.Context) error { return q.Sim.delay(ctx, time.Second) }
func (q SimQueue) CleanTopic(ctx context.Context, _ string) error { return q.Sim.delay(ctx, 2*time.Second) }
func (q SimQueue) ValidateCleaned(ctx context.Context) error { return q.Sim.delay(ctx, 8*time.Second) }
func (q SimQueue) CleanupTopics(ctx context.Context) error { return q.Sim.delay(ctx, time.Second) }
func (q SimQueue) StopConsumers(ctx context.Context) error { return q.Sim.delay(ctx, 2*time.Second) }

// SimObjectStore simulates the object storage runbook calls.
type SimObjectStore struct{ Sim *Simulator }

func (o SimObjectStore) Init(ctx context.Context) error { return o.Sim.delay(ctx, time.Second) }
func (o SimObjectStore) MoveLargeBlobsToGlacier(ctx context.Context) error {
	return o.Sim.delay(ctx, 8*time.Second)
}
func (o SimObjectStore) CleanUpOldBlobs(ctx context.Context) error {
	return o.Sim.delay(ctx, 10*time.Second)
}
func (o SimObjectStore) StopHungUploads(ctx context.Context) error {
	return o.Sim.delay(ctx, 8*time.Second)
}
