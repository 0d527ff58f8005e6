package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/domain"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/metrics"
)

const redacted = "[REDACTED]"

// Config sizes the recorder.
type Config struct {
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
	// AuditReads enables RecordRead; mutations are always recorded.
	AuditReads bool
}

// Recorder persists audit entries in the background.
type Recorder struct {
	sink    Sink
	cfg     Config
	logger  *logrus.Entry
	metrics *metrics.Metrics
	now     func() time.Time

	queue chan domain.AuditEntry
	wg    sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewRecorder builds a recorder; call Start to launch its workers.
func NewRecorder(sink Sink, cfg Config, logger *logrus.Logger, m *metrics.Metrics) *Recorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Recorder{
		sink:    sink,
		cfg:     cfg,
		logger:  logger.WithField("component", "audit"),
		metrics: m,
		now:     time.Now,
		queue:   make(chan domain.AuditEntry, cfg.QueueSize),
	}
}

// Start launches the workers. It is a no-op when already started.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return
	}
	r.started = true

	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for entry := range r.queue {
				r.persist(entry)
			}
		}()
	}
	r.logger.Infof("audit recorder started with %d workers", r.cfg.Workers)
}

// Record queues an entry for route, payload and actor. An empty actor is
// recorded as "none". It never blocks and never fails the caller.
func (r *Recorder) Record(route string, payload any, actor string) {
	entry := r.newEntry(route, payload, actor)

	r.mu.RLock()
	defer r.mu.RUnlock()

	logger := r.logger.WithFields(logrus.Fields{"audit_id": entry.ID, "route": entry.Route})
	if r.closed {
		r.metrics.Audit(metrics.AuditDropped)
		logger.Error("audit entry dropped: recorder closed")
		return
	}

	select {
	case r.queue <- entry:
	default:
		r.metrics.Audit(metrics.AuditDropped)
		logger.Error("audit entry dropped: queue full")
	}
}

// RecordRead records read-only routes only when read auditing is enabled.
func (r *Recorder) RecordRead(route string, payload any, actor string) {
	if !r.cfg.AuditReads {
		return
	}
	r.Record(route, payload, actor)
}

// Close stops accepting entries and waits for queued ones to be persisted.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	started := r.started
	close(r.queue)
	r.mu.Unlock()

	if !started {
		pending := len(r.queue)
		for entry := range r.queue {
			r.persist(entry)
		}
		if pending > 0 {
			r.logger.Warnf("persisted %d audit entries queued before start", pending)
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("audit recorder stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit recorder drain: %w", ctx.Err())
	}
}

func (r *Recorder) persist(entry domain.AuditEntry) {
	logger := r.logger.WithFields(logrus.Fields{"audit_id": entry.ID, "route": entry.Route})
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.Audit(metrics.AuditFailed)
			logger.Errorf("audit sink panicked: %v", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
	defer cancel()

	if err := r.sink.Write(ctx, entry); err != nil {
		r.metrics.Audit(metrics.AuditFailed)
		if !errors.Is(err, ErrPersistence) {
			err = fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		logger.WithError(err).Error("transaction log error")
		return
	}
	r.metrics.Audit(metrics.AuditWritten)
}

func (r *Recorder) newEntry(route string, payload any, actor string) domain.AuditEntry {
	if strings.TrimSpace(actor) == "" {
		actor = domain.AuditActorNone
	}
	return domain.AuditEntry{
		ID:             uuid.NewString(),
		Route:          route,
		RequestPayload: r.serialize(payload),
		Actor:          actor,
		CreatedAt:      r.now().UTC(),
	}
}

func (r *Recorder) serialize(payload any) string {
	if payload == nil {
		return "{}"
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		r.logger.WithError(err).Warn("audit payload not serializable")
		return `{"error":"unserializable payload"}`
	}

	// decode generically so structs and nested values are redacted too
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		r.logger.WithError(err).Warn("audit payload not serializable")
		return `{"error":"unserializable payload"}`
	}

	encoded, err := json.Marshal(redact(doc))
	if err != nil {
		r.logger.WithError(err).Warn("audit payload not serializable")
		return `{"error":"unserializable payload"}`
	}
	return string(encoded)
}

// redact hides credential-looking keys at any depth of a decoded JSON value.
func redact(v any) any {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			if strings.Contains(strings.ToLower(k), "password") {
				node[k] = redacted
				continue
			}
			node[k] = redact(child)
		}
	case []any:
		for i := range node {
			node[i] = redact(node[i])
		}
	}
	return v
}
