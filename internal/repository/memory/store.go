// Package memory provides an in-process implementation of the repository
// interfaces. It keeps the same transactional guarantees as the postgres
// backend: writes made inside WithTx become visible together on commit, and
// GetProductForUpdate serializes transactions touching the same product.
package memory

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/event-pos/internal/model"
	"github.com/tuanvumaihuynh/event-pos/internal/repository"
)

// Store is a thread-safe in-memory catalog, sales ledger and outbox.
type Store struct {
	mu       sync.RWMutex
	products map[uuid.UUID]model.Product
	sales    []model.Sale
	outbox   []*outboxMsg

	locksMu sync.Mutex
	locks   map[uuid.UUID]chan struct{}
}

type outboxMsg struct {
	id           uuid.UUID
	topic        string
	headers      map[string]string
	payload      json.RawMessage
	partitionKey *string
	createdAt    time.Time
	processedAt  *time.Time
	err          *string
}

var _ repository.UnitOfWork = (*Store)(nil)

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		products: make(map[uuid.UUID]model.Product),
		locks:    make(map[uuid.UUID]chan struct{}),
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := newTx(s)
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}

	t.commit()
	return nil
}

// Products returns a repository whose calls each run in their own transaction.
func (s *Store) Products() repository.ProductRepository {
	return &productRepository{store: s}
}

// Sales returns a repository whose calls each run in their own transaction.
func (s *Store) Sales() repository.SaleRepository {
	return &saleRepository{store: s}
}

// OutboxMsgs returns a repository whose calls each run in their own transaction.
func (s *Store) OutboxMsgs() repository.OutboxMsgRepository {
	return &outboxMsgRepository{store: s}
}

// IsHealthy always reports true; the store lives in process.
func (s *Store) IsHealthy(_ context.Context) (bool, error) {
	return true, nil
}

func (s *Store) productLock(id uuid.UUID) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[id] = l
	}
	return l
}

// run executes fn in tx when it is set, or in a fresh auto-committed one.
func (s *Store) run(ctx context.Context, t *tx, fn func(t *tx) error) error {
	if t != nil {
		return fn(t)
	}
	return s.WithTx(ctx, func(rtx repository.Tx) error {
		return fn(rtx.(*tx))
	})
}

// tx stages writes until commit. A nil staged product marks a deletion.
type tx struct {
	store *Store
	held  map[uuid.UUID]chan struct{}

	products      map[uuid.UUID]*model.Product
	sales         []model.Sale
	clearedSales  map[uuid.UUID]struct{}
	outboxNew     []*outboxMsg
	outboxUpdates []repository.BulkUpdateOutboxMsgsItem
}

func newTx(s *Store) *tx {
	return &tx{
		store:    s,
		held:     make(map[uuid.UUID]chan struct{}),
		products: make(map[uuid.UUID]*model.Product),
	}
}

func (t *tx) Products() repository.ProductRepository {
	return &productRepository{store: t.store, tx: t}
}

func (t *tx) Sales() repository.SaleRepository {
	return &saleRepository{store: t.store, tx: t}
}

func (t *tx) OutboxMsgs() repository.OutboxMsgRepository {
	return &outboxMsgRepository{store: t.store, tx: t}
}

func (t *tx) lockProduct(ctx context.Context, id uuid.UUID) error {
	if _, ok := t.held[id]; ok {
		return nil
	}

	l := t.store.productLock(id)
	select {
	case l <- struct{}{}:
		t.held[id] = l
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *tx) release() {
	for id, l := range t.held {
		<-l
		delete(t.held, id)
	}
}

func (t *tx) lookupProduct(id uuid.UUID) (model.Product, bool) {
	if staged, ok := t.products[id]; ok {
		if staged == nil {
			return model.Product{}, false
		}
		return cloneProduct(*staged), true
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	p, ok := t.store.products[id]
	if !ok {
		return model.Product{}, false
	}
	return cloneProduct(p), true
}

func (t *tx) clearsSale(id uuid.UUID) bool {
	_, ok := t.clearedSales[id]
	return ok
}

func (t *tx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range t.products {
		if p == nil {
			delete(s.products, id)
			continue
		}
		s.products[id] = *p
	}

	if len(t.clearedSales) > 0 {
		kept := make([]model.Sale, 0, len(s.sales))
		for _, sale := range s.sales {
			if !t.clearsSale(sale.ID) {
				kept = append(kept, sale)
			}
		}
		s.sales = kept
	}
	s.sales = append(s.sales, t.sales...)

	s.outbox = append(s.outbox, t.outboxNew...)
	if len(t.outboxUpdates) > 0 {
		now := time.Now()
		updates := make(map[uuid.UUID]*string, len(t.outboxUpdates))
		for _, item := range t.outboxUpdates {
			updates[item.ID] = item.Error
		}
		for _, msg := range s.outbox {
			if errMsg, ok := updates[msg.id]; ok {
				msg.processedAt = &now
				msg.err = errMsg
			}
		}
	}
}

func cloneProduct(p model.Product) model.Product {
	p.Sizes = p.Sizes.Clone()
	if p.ImageURL != nil {
		url := *p.ImageURL
		p.ImageURL = &url
	}
	return p
}

func cloneHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	maps.Copy(out, h)
	return out
}

func sortSalesNewestFirst(sales []model.Sale) {
	slices.SortStableFunc(sales, func(a, b model.Sale) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}
