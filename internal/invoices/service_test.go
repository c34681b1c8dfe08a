package invoices

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/gastropos/gastropos/internal/orders"
	"github.com/gastropos/gastropos/internal/shared"
)

type memoryRepo struct {
	invoices map[int64]Invoice
	byOrder  map[int64]int64
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{invoices: make(map[int64]Invoice), byOrder: make(map[int64]int64)}
}

func (r *memoryRepo) Insert(ctx context.Context, inv Invoice) (Invoice, error) {
	if _, ok := r.byOrder[inv.OrderID]; ok {
		return Invoice{}, ErrAlreadyInvoiced
	}
	r.nextID++
	inv.ID = r.nextID
	r.invoices[inv.ID] = inv
	r.byOrder[inv.OrderID] = inv.ID
	return inv, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return Invoice{}, shared.ErrNotFound
	}
	return inv, nil
}

func (r *memoryRepo) List(ctx context.Context, limit, offset int) ([]Invoice, int, error) {
	var list []Invoice
	for _, inv := range r.invoices {
		list = append(list, inv)
	}
	return list, len(list), nil
}

type stubOrders struct {
	orders map[int64]orders.Order
}

func (s *stubOrders) Get(ctx context.Context, id int64) (orders.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, shared.ErrNotFound
	}
	return o, nil
}

func newTestService(repo RepositoryPort) *Service {
	ordersPort := &stubOrders{orders: map[int64]orders.Order{
		1: {ID: 1, Code: "ORD-1", Status: orders.StatusFulfilled, TotalCents: 10000},
		2: {ID: 2, Code: "ORD-2", Status: orders.StatusSubmitted, TotalCents: 5000},
	}}
	return NewService(repo, ordersPort, NewFormatter("USD", language.English), nil)
}

func TestIssueComputesTaxAndDisplayTotals(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	inv, err := svc.Issue(context.Background(), 3, IssueInput{OrderID: 1, TaxRateBPs: 1000})
	require.NoError(t, err)
	require.Equal(t, int64(10000), inv.SubtotalCents)
	require.Equal(t, int64(1000), inv.TaxCents)
	require.Equal(t, int64(11000), inv.TotalCents)
	require.Equal(t, "USD", inv.Currency)
	require.NotEmpty(t, inv.Number)
	require.Contains(t, inv.TotalDisplay, "110")
}

func TestIssueRequiresFulfilledOrder(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Issue(context.Background(), 3, IssueInput{OrderID: 2})
	require.ErrorIs(t, err, ErrOrderNotFulfilled)

	_, err = svc.Issue(context.Background(), 3, IssueInput{OrderID: 99})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestIssueRejectsDoubleInvoicing(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.Issue(context.Background(), 3, IssueInput{OrderID: 1})
	require.NoError(t, err)

	_, err = svc.Issue(context.Background(), 3, IssueInput{OrderID: 1})
	require.ErrorIs(t, err, ErrAlreadyInvoiced)
}

func TestFormatterFallsBackToUSD(t *testing.T) {
	f := NewFormatter("NOPE", language.English)
	require.Equal(t, "USD", f.Code())
	require.NotEmpty(t, f.Format(123450))
}
