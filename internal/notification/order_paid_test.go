package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/infrastructure/mailer"
)

type mockMailer struct {
	sent []mailer.Message
	ctxs []context.Context
	err  error
}

func (m *mockMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	m.ctxs = append(m.ctxs, ctx)
	return m.err
}

type mockPublisher struct {
	OrderPaidFunc func(ctx context.Context, order domain.Order) error
	calls         int
}

func (m *mockPublisher) OrderPaid(ctx context.Context, order domain.Order) error {
	m.calls++
	if m.OrderPaidFunc == nil {
		return nil
	}
	return m.OrderPaidFunc(ctx, order)
}

func paidOrder() domain.Order {
	return domain.Order{
		ID:         17,
		State:      domain.OrderStatePaid,
		Name:       "Ana",
		Email:      "ana@example.com",
		FinalTotal: decimal.RequireFromString("1150.5"),
	}
}

func TestOrderPaid_SendsEmailAndPublishes(t *testing.T) {
	m := &mockMailer{}
	p := &mockPublisher{}
	n := NewOrderPaidNotifier(m, p, zap.NewNop())

	err := n.OrderPaid(context.Background(), paidOrder())

	require.NoError(t, err)
	require.Len(t, m.sent, 1)
	assert.Equal(t, "ana@example.com", m.sent[0].To)
	assert.Equal(t, "Order #17 confirmed", m.sent[0].Subject)
	assert.Contains(t, m.sent[0].Body, "Hi Ana")
	assert.Contains(t, m.sent[0].Body, "$1150.50")
	assert.Equal(t, 1, p.calls)
}

func TestOrderPaid_SkipsEmailWithoutAddress(t *testing.T) {
	m := &mockMailer{}
	p := &mockPublisher{}
	n := NewOrderPaidNotifier(m, p, zap.NewNop())
	order := paidOrder()
	order.Email = ""

	err := n.OrderPaid(context.Background(), order)

	require.NoError(t, err)
	assert.Empty(t, m.sent)
	assert.Equal(t, 1, p.calls)
}

func TestOrderPaid_MailFailureStillPublishes(t *testing.T) {
	m := &mockMailer{err: errors.New("smtp down")}
	p := &mockPublisher{}
	n := NewOrderPaidNotifier(m, p, zap.NewNop())

	err := n.OrderPaid(context.Background(), paidOrder())

	assert.ErrorContains(t, err, "smtp down")
	assert.Equal(t, 1, p.calls)
}

func TestOrderPaid_NilPublisher(t *testing.T) {
	m := &mockMailer{}
	n := NewOrderPaidNotifier(m, nil, zap.NewNop())

	err := n.OrderPaid(context.Background(), paidOrder())

	require.NoError(t, err)
	assert.Len(t, m.sent, 1)
}

func TestOrderPaid_JoinsErrors(t *testing.T) {
	m := &mockMailer{err: errors.New("smtp down")}
	p := &mockPublisher{OrderPaidFunc: func(ctx context.Context, order domain.Order) error {
		return errors.New("broker down")
	}}
	n := NewOrderPaidNotifier(m, p, zap.NewNop())

	err := n.OrderPaid(context.Background(), paidOrder())

	assert.ErrorContains(t, err, "smtp down")
	assert.ErrorContains(t, err, "broker down")
}

func TestOrderPaid_NilMailer(t *testing.T) {
	p := &mockPublisher{}
	n := NewOrderPaidNotifier(nil, p, zap.NewNop())

	err := n.OrderPaid(context.Background(), paidOrder())

	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
}

type ctxKey struct{}

func TestOrderPaid_PassesContextToMailer(t *testing.T) {
	m := &mockMailer{}
	n := NewOrderPaidNotifier(m, nil, zap.NewNop())
	ctx := context.WithValue(context.Background(), ctxKey{}, "reconcile")

	require.NoError(t, n.OrderPaid(ctx, paidOrder()))

	require.Len(t, m.ctxs, 1)
	assert.Equal(t, "reconcile", m.ctxs[0].Value(ctxKey{}))
}
