package cart

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func product(id string, price int64) domain.Product {
	return domain.Product{ID: id, Title: "Product " + id, Price: price}
}

// ============================================================================
// AddItem Tests
// ============================================================================

func TestAddItem_NewItem(t *testing.T) {
	s := New()

	require.NoError(t, s.AddItem(product("sku1", 9999), 1))

	items := s.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "sku1", items[0].ProductID)
	assert.Equal(t, "Product sku1", items[0].Title)
	assert.Equal(t, int64(9999), items[0].UnitPrice)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestAddItem_MergesExistingProduct(t *testing.T) {
	s := New()

	require.NoError(t, s.AddItem(product("p", 500), 2))
	require.NoError(t, s.AddItem(product("p", 500), 3))

	items := s.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestAddItem_MergeRefreshesTitleAndPrice(t *testing.T) {
	s := New()

	require.NoError(t, s.AddItem(domain.Product{ID: "p", Title: "Old", Price: 500}, 1))
	require.NoError(t, s.AddItem(domain.Product{ID: "p", Title: "New", Price: 450}, 1))

	item, ok := s.Find("p")
	require.True(t, ok)
	assert.Equal(t, "New", item.Title)
	assert.Equal(t, int64(450), item.UnitPrice)
	assert.Equal(t, 2, item.Quantity)
}

func TestAddItem_PreservesInsertionOrder(t *testing.T) {
	s := New()

	require.NoError(t, s.AddItem(product("c", 1), 1))
	require.NoError(t, s.AddItem(product("a", 1), 1))
	require.NoError(t, s.AddItem(product("b", 1), 1))
	require.NoError(t, s.AddItem(product("a", 1), 1))

	items := s.Snapshot()
	require.Len(t, items, 3)
	assert.Equal(t, "c", items[0].ProductID)
	assert.Equal(t, "a", items[1].ProductID)
	assert.Equal(t, "b", items[2].ProductID)
}

func TestAddItem_NegativeQuantityLeavesCartUnchanged(t *testing.T) {
	s := New()
	require.NoError(t, s.AddItem(product("p", 100), 2))
	before := s.Snapshot()

	err := s.AddItem(product("p", 100), -1)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, before, s.Snapshot())
}

func TestAddItem_ZeroQuantityRejected(t *testing.T) {
	s := New()

	err := s.AddItem(product("p", 100), 0)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, 0, s.Len())
}

func TestAddItem_NegativePriceRejected(t *testing.T) {
	s := New()

	err := s.AddItem(product("p", -1), 1)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, 0, s.Len())
}

func TestAddItem_EmptyProductIDRejected(t *testing.T) {
	s := New()

	err := s.AddItem(product("  ", 100), 1)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAddItem_QuantityCeiling(t *testing.T) {
	s := New()

	err := s.AddItem(product("p", 100), MaxQuantityPerItem+1)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	require.NoError(t, s.AddItem(product("p", 100), MaxQuantityPerItem))
	err = s.AddItem(product("p", 100), 1)
	require.Error(t, err)

	item, _ := s.Find("p")
	assert.Equal(t, MaxQuantityPerItem, item.Quantity)
}

func TestAddItem_DistinctItemCeiling(t *testing.T) {
	s := New()
	for i := 0; i < MaxItemsPerCart; i++ {
		require.NoError(t, s.AddItem(product(fmt.Sprintf("p-%d", i), 100), 1))
	}

	err := s.AddItem(product("one-too-many", 100), 1)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, MaxItemsPerCart, s.Len())

	// Merging into an existing entry is still allowed at the ceiling.
	require.NoError(t, s.AddItem(product("p-0", 100), 1))
}

// ============================================================================
// RemoveItem / SetQuantity / Clear Tests
// ============================================================================

func TestRemoveItem(t *testing.T) {
	s := New()
	require.NoError(t, s.AddItem(product("a", 100), 1))
	require.NoError(t, s.AddItem(product("b", 100), 1))

	assert.True(t, s.RemoveItem("a"))

	items := s.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ProductID)
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	s := New()
	require.NoError(t, s.AddItem(product("a", 100), 1))

	assert.False(t, s.RemoveItem("missing"))
	assert.Equal(t, 1, s.Len())
}

func TestSetQuantity_Overwrites(t *testing.T) {
	s := New()
	require.NoError(t, s.AddItem(product("a", 100), 1))

	changed, err := s.SetQuantity("a", 7)

	require.NoError(t, err)
	assert.True(t, changed)
	item, _ := s.Find("a")
	assert.Equal(t, 7, item.Quantity)
}

func TestSetQuantity_Idempotent(t *testing.T) {
	once := New()
	twice := New()
	for _, s := range []*Store{once, twice} {
		require.NoError(t, s.AddItem(product("a", 100), 1))
		require.NoError(t, s.AddItem(product("b", 250), 4))
	}

	_, err := once.SetQuantity("a", 3)
	require.NoError(t, err)
	_, err = twice.SetQuantity("a", 3)
	require.NoError(t, err)
	_, err = twice.SetQuantity("a", 3)
	require.NoError(t, err)

	assert.Equal(t, once.Snapshot(), twice.Snapshot())
}

func TestSetQuantity_ZeroOrNegativeRemoves(t *testing.T) {
	for _, qty := range []int{0, -4} {
		t.Run(fmt.Sprintf("qty=%d", qty), func(t *testing.T) {
			s := New()
			require.NoError(t, s.AddItem(product("a", 100), 2))

			changed, err := s.SetQuantity("a", qty)

			require.NoError(t, err)
			assert.True(t, changed)
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestSetQuantity_AbsentIsNoop(t *testing.T) {
	s := New()

	changed, err := s.SetQuantity("missing", 3)

	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, s.Len())
}

func TestSetQuantity_AboveCeilingRejected(t *testing.T) {
	s := New()
	require.NoError(t, s.AddItem(product("a", 100), 2))

	_, err := s.SetQuantity("a", MaxQuantityPerItem+1)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	item, _ := s.Find("a")
	assert.Equal(t, 2, item.Quantity)
}

func TestClear(t *testing.T) {
	s := New()
	require.NoError(t, s.AddItem(product("a", 100), 2))
	require.NoError(t, s.AddItem(product("b", 100), 1))

	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.ItemCount())
	assert.NotNil(t, s.Snapshot())
}

// ============================================================================
// Snapshot / Restore Tests
// ============================================================================

func TestSnapshot_EmptyIsNotNil(t *testing.T) {
	items := New().Snapshot()
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestSnapshot_IsDefensiveCopy(t *testing.T) {
	s := New()
	require.NoError(t, s.AddItem(product("a", 100), 1))

	items := s.Snapshot()
	items[0].Quantity = 99
	items[0].UnitPrice = 1

	item, _ := s.Find("a")
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, int64(100), item.UnitPrice)
}

func TestRestore_RoundTrip(t *testing.T) {
	s := New()
	require.NoError(t, s.AddItem(product("c", 1050), 3))
	require.NoError(t, s.AddItem(product("a", 2500), 2))
	require.NoError(t, s.AddItem(product("b", 0), 1))

	restored, err := Restore(s.Snapshot())

	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), restored.Snapshot())
	assert.Equal(t, s.ItemCount(), restored.ItemCount())
}

func TestRestore_DoesNotAliasInput(t *testing.T) {
	items := []domain.LineItem{{ProductID: "a", Title: "A", UnitPrice: 100, Quantity: 1}}

	s, err := Restore(items)
	require.NoError(t, err)

	items[0].Quantity = 50
	item, _ := s.Find("a")
	assert.Equal(t, 1, item.Quantity)
}

func TestRestore_Nil(t *testing.T) {
	s, err := Restore(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.NotNil(t, s.Snapshot())
}

func TestRestore_InvalidItems(t *testing.T) {
	tests := []struct {
		name  string
		items []domain.LineItem
	}{
		{"empty product id", []domain.LineItem{{ProductID: "", UnitPrice: 1, Quantity: 1}}},
		{"zero quantity", []domain.LineItem{{ProductID: "a", UnitPrice: 1, Quantity: 0}}},
		{"negative price", []domain.LineItem{{ProductID: "a", UnitPrice: -1, Quantity: 1}}},
		{"quantity above ceiling", []domain.LineItem{{ProductID: "a", UnitPrice: 1, Quantity: MaxQuantityPerItem + 1}}},
		{"duplicate product", []domain.LineItem{
			{ProductID: "a", UnitPrice: 1, Quantity: 1},
			{ProductID: "a", UnitPrice: 1, Quantity: 2},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(tt.items)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

// --- Concurrency ---

func TestStore_ConcurrentAdds(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AddItem(product("a", 100), 1)
		}()
	}
	wg.Wait()

	item, ok := s.Find("a")
	require.True(t, ok)
	assert.Equal(t, 20, item.Quantity)
}
