package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/domain"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/repository"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/storage"
)

// ErrPersistence wraps every sink failure.
var ErrPersistence = errors.New("audit persistence failed")

// Sink persists audit entries.
type Sink interface {
	Write(ctx context.Context, entry domain.AuditEntry) error
}

// RepositorySink writes entries to the Transactions table.
type RepositorySink struct {
	repo repository.AuditRepository
}

func NewRepositorySink(repo repository.AuditRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Write(ctx context.Context, entry domain.AuditEntry) error {
	if err := s.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// ArchiveSink copies entries to object storage as one JSON object each.
type ArchiveSink struct {
	store  storage.Service
	bucket string
	prefix string
}

func NewArchiveSink(store storage.Service, bucket, prefix string) *ArchiveSink {
	return &ArchiveSink{
		store:  store,
		bucket: bucket,
		prefix: prefix,
	}
}

type archivedEntry struct {
	ID             string    `json:"id"`
	Route          string    `json:"route"`
	RequestPayload string    `json:"request_payload"`
	Actor          string    `json:"actor"`
	CreatedAt      time.Time `json:"created_at"`
}

// Key is "<prefix>/YYYY/MM/DD/<id>.json".
func (s *ArchiveSink) Key(entry domain.AuditEntry) string {
	return path.Join(s.prefix, entry.CreatedAt.UTC().Format("2006/01/02"), entry.ID+".json")
}

func (s *ArchiveSink) Write(ctx context.Context, entry domain.AuditEntry) error {
	body, err := json.Marshal(archivedEntry{
		ID:             entry.ID,
		Route:          entry.Route,
		RequestPayload: entry.RequestPayload,
		Actor:          entry.Actor,
		CreatedAt:      entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("%w: encode entry: %v", ErrPersistence, err)
	}
	if _, err := s.store.PutObject(ctx, s.bucket, s.Key(entry), body, "application/json"); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// MultiSink writes to every sink and reports all failures.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, entry domain.AuditEntry) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
