package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure/mysql"
)

// memStore is an in-memory Orders/Payments pair whose FindByIDForUpdate
// blocks like InnoDB row locks until the holding transaction ends.
type memStore struct {
	mu       sync.Mutex
	orders   map[uint]domain.Order
	payments map[uint]domain.PaymentRecord
	locks    map[uint]*sync.Mutex
	begun    atomic.Int32
}

func newMemStore(orders ...domain.Order) *memStore {
	s := &memStore{
		orders:   make(map[uint]domain.Order),
		payments: make(map[uint]domain.PaymentRecord),
		locks:    make(map[uint]*sync.Mutex),
	}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *memStore) lockFor(id uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *memStore) order(id uint) domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}

func (s *memStore) payment(id uint) (domain.PaymentRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	return p, ok
}

func (s *memStore) BeginTx(ctx context.Context, opts *sql.TxOptions) (mysql.Tx, error) {
	s.begun.Add(1)
	return &memTx{store: s}, nil
}

type memTx struct {
	store    *memStore
	held     []*sync.Mutex
	orders   map[uint]domain.Order
	payments map[uint]domain.PaymentRecord
	done     bool
}

func (t *memTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, errors.New("memTx: unexpected ExecContext")
}

func (t *memTx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, errors.New("memTx: unexpected QueryContext")
}

func (t *memTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.store.mu.Lock()
	for id, o := range t.orders {
		t.store.orders[id] = o
	}
	for id, p := range t.payments {
		t.store.payments[id] = p
	}
	t.store.mu.Unlock()
	t.release()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.release()
	return nil
}

func (t *memTx) release() {
	t.done = true
	for _, l := range t.held {
		l.Unlock()
	}
	t.held = nil
}

// memOrderRepository and memPaymentRepository read through the store and
// stage writes on the transaction.
type memOrderRepository struct {
	store *memStore
}

func (r *memOrderRepository) FindByIDForUpdate(ctx context.Context, tx mysql.DBTX, id uint) (*domain.Order, error) {
	mt := tx.(*memTx)
	l := r.store.lockFor(id)
	l.Lock()
	mt.held = append(mt.held, l)

	r.store.mu.Lock()
	o, ok := r.store.orders[id]
	r.store.mu.Unlock()
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	return &o, nil
}

func (r *memOrderRepository) FindOwned(ctx context.Context, id uint, customerID uint) (*domain.Order, error) {
	o := r.store.order(id)
	if o.ID == 0 || o.CustomerID != customerID {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	return &o, nil
}

func (r *memOrderRepository) UpdatePaymentState(ctx context.Context, tx mysql.DBTX, order *domain.Order) error {
	mt := tx.(*memTx)
	if mt.orders == nil {
		mt.orders = make(map[uint]domain.Order)
	}
	mt.orders[order.ID] = *order
	return nil
}

type memPaymentRepository struct {
	store *memStore
}

func (r *memPaymentRepository) FindByOrderID(ctx context.Context, tx mysql.DBTX, orderID uint) (*domain.PaymentRecord, error) {
	mt := tx.(*memTx)
	if p, ok := mt.payments[orderID]; ok {
		return &p, nil
	}
	p, ok := r.store.payment(orderID)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("payment for order %d not found", orderID))
	}
	return &p, nil
}

func (r *memPaymentRepository) Upsert(ctx context.Context, tx mysql.DBTX, payment *domain.PaymentRecord) error {
	mt := tx.(*memTx)
	if mt.payments == nil {
		mt.payments = make(map[uint]domain.PaymentRecord)
	}
	mt.payments[payment.OrderID] = *payment
	return nil
}

type countingNotifier struct {
	calls atomic.Int32
	err   error
}

func (n *countingNotifier) OrderPaid(ctx context.Context, order domain.Order) error {
	n.calls.Add(1)
	return n.err
}
