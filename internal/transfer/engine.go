// Package transfer moves stock ownership between users and persists the
// result.
//
// Work on a single record id is serialised: the ownership check, the
// reassignment and the write that follows happen without another transfer of
// the same record in between. Writes always snapshot the store while holding
// the write lock, so the last finished write contains every mutation made
// before it started.
package transfer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/trading-services/internal/metrics"
	"github.com/example/trading-services/internal/models"
	"github.com/example/trading-services/internal/store"
)

// Publisher receives committed transfers.
type Publisher interface {
	Publish(ctx context.Context, events ...models.TransferEvent) error
}

type Result struct {
	Record  models.Stock
	Message string
}

type ItemResult struct {
	RecordID string        `json:"recordId"`
	Success  bool          `json:"success"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Record   *models.Stock `json:"record,omitempty"`

	err error
}

// Err returns the failure behind an unsuccessful item.
func (r ItemResult) Err() error { return r.err }

type Engine struct {
	store  *store.Store
	sink   store.Sink
	logger *zap.Logger

	locks  *keyedMutex
	saveMu sync.Mutex

	publisher Publisher
	metrics   *metrics.Metrics
	onChange  []func()
	now       func() time.Time
}

type Option func(*Engine)

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.publisher = p } }

func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// OnChange registers fn to run after the store has been mutated, whether or
// not the write that follows succeeds.
func OnChange(fn func()) Option { return func(e *Engine) { e.onChange = append(e.onChange, fn) } }

func New(s *store.Store, sink store.Sink, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		sink:   sink,
		logger: logger,
		locks:  newKeyedMutex(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Transfer(ctx context.Context, req models.TransferRequest) (Result, error) {
	if !complete(req) {
		e.metrics.ObserveTransfer(Outcome(ErrInvalidRequest))
		return Result{}, ErrInvalidRequest
	}

	unlock := e.locks.Lock(req.RecordID)
	defer unlock()

	st, err := e.apply(req)
	if err != nil {
		e.metrics.ObserveTransfer(Outcome(err))
		return Result{}, err
	}
	e.changed()

	res := Result{Record: st, Message: message(req)}
	if err := e.persist(ctx); err != nil {
		e.logger.Error("transfer applied but not persisted",
			zap.String("record_id", req.RecordID),
			zap.String("from", req.FromOwner),
			zap.String("to", req.ToOwner),
			zap.Error(err),
		)
		e.metrics.ObserveTransfer(Outcome(ErrPersistence))
		return res, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	e.metrics.ObserveTransfer(Outcome(nil))
	e.logger.Info(res.Message, zap.String("record_id", req.RecordID))
	e.publish(ctx, req)
	return res, nil
}

// TransferBatch applies every request in order. A failing item does not stop
// the batch and earlier successes are kept. The store is written once, after
// the last item, if anything changed.
func (e *Engine) TransferBatch(ctx context.Context, reqs []models.TransferRequest) ([]ItemResult, error) {
	if len(reqs) == 0 {
		return nil, ErrInvalidRequest
	}

	results := make([]ItemResult, len(reqs))
	applied := make([]models.TransferRequest, 0, len(reqs))
	for i, req := range reqs {
		results[i] = e.applyItem(req)
		if results[i].Success {
			applied = append(applied, req)
		}
	}
	if len(applied) == 0 {
		return results, nil
	}
	e.changed()

	if err := e.persist(ctx); err != nil {
		e.logger.Error("batch applied but not persisted",
			zap.Int("applied", len(applied)),
			zap.Strings("record_ids", recordIDs(applied)),
			zap.Error(err),
		)
		for range applied {
			e.metrics.ObserveTransfer(Outcome(ErrPersistence))
		}
		return results, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	for range applied {
		e.metrics.ObserveTransfer(Outcome(nil))
	}
	e.logger.Info("batch transfer completed",
		zap.Int("operations", len(reqs)),
		zap.Int("applied", len(applied)),
	)
	e.publish(ctx, applied...)
	return results, nil
}

func (e *Engine) applyItem(req models.TransferRequest) ItemResult {
	out := ItemResult{RecordID: req.RecordID}
	if !complete(req) {
		out.err = ErrInvalidRequest
	} else {
		unlock := e.locks.Lock(req.RecordID)
		st, err := e.apply(req)
		unlock()
		if err == nil {
			out.Success = true
			out.Message = message(req)
			out.Record = &st
			return out
		}
		out.err = err
	}
	out.Error = Message(out.err)
	e.metrics.ObserveTransfer(Outcome(out.err))
	return out
}

func (e *Engine) apply(req models.TransferRequest) (models.Stock, error) {
	st, err := e.store.Reassign(req.RecordID, req.FromOwner, req.ToOwner)
	if err != nil {
		e.logger.Warn("transfer rejected",
			zap.String("record_id", req.RecordID),
			zap.String("from", req.FromOwner),
			zap.String("owned", st.Owned),
			zap.Error(err),
		)
		return models.Stock{}, err
	}
	return st, nil
}

func (e *Engine) persist(ctx context.Context) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	err := e.sink.Save(ctx, e.store.Snapshot())
	e.metrics.ObserveStoreWrite(err)
	return err
}

func (e *Engine) changed() {
	for _, fn := range e.onChange {
		fn()
	}
}

func (e *Engine) publish(ctx context.Context, reqs ...models.TransferRequest) {
	if e.publisher == nil {
		return
	}
	events := make([]models.TransferEvent, 0, len(reqs))
	for _, r := range reqs {
		events = append(events, models.TransferEvent{
			EventID:  uuid.NewString(),
			RecordID: r.RecordID,
			From:     r.FromOwner,
			To:       r.ToOwner,
			TS:       e.now(),
		})
	}
	if err := e.publisher.Publish(ctx, events...); err != nil {
		e.logger.Warn("publish transfer events", zap.Int("events", len(events)), zap.Error(err))
	}
}

func complete(req models.TransferRequest) bool {
	return req.RecordID != "" && req.FromOwner != "" && req.ToOwner != ""
}

func message(req models.TransferRequest) string {
	return fmt.Sprintf("Stock %s transferred from %s to %s", req.RecordID, req.FromOwner, req.ToOwner)
}

func recordIDs(reqs []models.TransferRequest) []string {
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.RecordID)
	}
	return ids
}
