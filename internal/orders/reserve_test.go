package orders_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hartanto/go-cafe-orders/internal/orders"
	"github.com/hartanto/go-cafe-orders/internal/orders/ordertest"
)

func product(id, name string, price string, stock int, available bool) orders.Product {
	return orders.Product{
		ID:            id,
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsAvailable:   available,
	}
}

func TestReserve_DecrementsAndSnapshotsUnderLock(t *testing.T) {
	st := ordertest.New()
	st.AddProduct(product("p-espresso", "Espresso", "4.50", 10, true))
	st.AddProduct(product("p-kaya", "Kaya Toast", "3.20", 5, true))

	var reserved []orders.Reservation
	err := st.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		var itemErrs []orders.ItemError
		var err error
		reserved, itemErrs, err = orders.Reserve(ctx, tx, []orders.ItemInput{
			{ProductID: "p-kaya", Quantity: 2},
			{ProductID: "p-espresso", Quantity: 3},
		})
		require.NoError(t, err)
		require.Empty(t, itemErrs)
		return nil
	})
	require.NoError(t, err)

	// locked in ascending product id order regardless of request order
	require.Len(t, reserved, 2)
	assert.Equal(t, "p-espresso", reserved[0].ProductID)
	assert.Equal(t, "p-kaya", reserved[1].ProductID)
	assert.Equal(t, "Espresso", reserved[0].ProductName)
	assert.Equal(t, "4.50", reserved[0].UnitPrice.String())
	assert.Equal(t, 7, reserved[0].RemainingStock)

	assert.Equal(t, 7, st.StockOf("p-espresso"))
	assert.Equal(t, 3, st.StockOf("p-kaya"))
}

func TestReserve_AllOrNothing(t *testing.T) {
	st := ordertest.New()
	st.AddProduct(product("p-1", "Flat White", "5.00", 10, true))
	st.AddProduct(product("p-2", "Latte", "5.50", 1, true))
	st.AddProduct(product("p-3", "Mocha", "6.00", 10, true))

	var itemErrs []orders.ItemError
	err := st.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		var err error
		_, itemErrs, err = orders.Reserve(ctx, tx, []orders.ItemInput{
			{ProductID: "p-1", Quantity: 2},
			{ProductID: "p-2", Quantity: 5}, // only 1 in stock
			{ProductID: "p-3", Quantity: 2},
		})
		require.NoError(t, err)
		if len(itemErrs) > 0 {
			return &orders.ReservationError{Items: itemErrs}
		}
		return nil
	})
	require.Error(t, err)

	require.Len(t, itemErrs, 1)
	assert.Equal(t, orders.ReasonInsufficientStock, itemErrs[0].Reason)
	assert.Equal(t, 5, itemErrs[0].Required)
	assert.Equal(t, 1, itemErrs[0].Available)

	// no stock change survives for any item, including the ones that
	// individually succeeded before the rollback
	assert.Equal(t, 10, st.StockOf("p-1"))
	assert.Equal(t, 1, st.StockOf("p-2"))
	assert.Equal(t, 10, st.StockOf("p-3"))
}

func TestReserve_PerItemReasons(t *testing.T) {
	st := ordertest.New()
	st.AddProduct(product("p-off", "Seasonal Special", "7.00", 10, false))
	st.AddProduct(product("p-low", "Teh Tarik", "2.80", 1, true))

	var itemErrs []orders.ItemError
	_ = st.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		var err error
		_, itemErrs, err = orders.Reserve(ctx, tx, []orders.ItemInput{
			{ProductID: "p-ghost", Quantity: 1},
			{ProductID: "p-low", Quantity: 2},
			{ProductID: "p-off", Quantity: 1},
		})
		require.NoError(t, err)
		return &orders.ReservationError{Items: itemErrs}
	})

	require.Len(t, itemErrs, 3)
	byID := map[string]orders.ItemErrorReason{}
	for _, ie := range itemErrs {
		byID[ie.ProductID] = ie.Reason
	}
	assert.Equal(t, orders.ReasonNotFound, byID["p-ghost"])
	assert.Equal(t, orders.ReasonInsufficientStock, byID["p-low"])
	assert.Equal(t, orders.ReasonUnavailable, byID["p-off"])
}

func TestRelease_NotIdempotent(t *testing.T) {
	st := ordertest.New()
	st.AddProduct(product("p-1", "Long Black", "4.00", 10, true))
	items := []orders.ItemInput{{ProductID: "p-1", Quantity: 3}}

	require.NoError(t, st.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		_, itemErrs, err := orders.Reserve(ctx, tx, items)
		require.NoError(t, err)
		require.Empty(t, itemErrs)
		return nil
	}))
	require.Equal(t, 7, st.StockOf("p-1"))

	release := func() {
		require.NoError(t, st.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
			return orders.Release(ctx, tx, items)
		}))
	}
	release()
	assert.Equal(t, 10, st.StockOf("p-1"))

	// a second release double-credits; callers must gate on order state
	release()
	assert.Equal(t, 13, st.StockOf("p-1"))
}

func TestReserve_ConcurrentSingleUnit(t *testing.T) {
	st := ordertest.New()
	st.AddProduct(product("p-last", "Last Croissant", "3.90", 1, true))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- st.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
				_, itemErrs, err := orders.Reserve(ctx, tx, []orders.ItemInput{{ProductID: "p-last", Quantity: 1}})
				if err != nil {
					return err
				}
				if len(itemErrs) > 0 {
					return &orders.ReservationError{Items: itemErrs}
				}
				return nil
			})
		}()
	}
	wg.Wait()
	close(results)

	var ok, failed int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		failed++
		var rErr *orders.ReservationError
		require.ErrorAs(t, err, &rErr)
		require.Equal(t, orders.ReasonInsufficientStock, rErr.Items[0].Reason)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 0, st.StockOf("p-last"))
}
