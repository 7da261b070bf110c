package services

import (
	"math/rand"
	"testing"

	"chamberhub/campaigns/internal/constants"
	gormModels "chamberhub/campaigns/internal/models/gorm"

	"github.com/stretchr/testify/require"
)

func levelOrders(t *testing.T, f *fixture, productID string) []int {
	t.Helper()
	var orders []int
	require.NoError(t, f.db.Model(&gormModels.Level{}).
		Where("product_id = ? AND is_active = ?", productID, true).
		Order("sort_order").
		Pluck("sort_order", &orders).Error)
	return orders
}

func requireDense(t *testing.T, orders []int) {
	t.Helper()
	for i, o := range orders {
		require.Equal(t, i, o, "orders %v are not dense", orders)
	}
}

func TestOrderManager_AppendPlacesLast(t *testing.T) {
	f := newFixture(t, 0)
	c := f.category(t, "Events")
	p := f.product(t, c.ID, "Gala")

	for i := 0; i < 4; i++ {
		l := f.levelIn(t, p.ID, "L", "100", 1)
		require.Equal(t, i, l.SortOrder)
	}
	requireDense(t, levelOrders(t, f, p.ID))
}

func TestOrderManager_ReorderMovesUp(t *testing.T) {
	f := newFixture(t, 0)
	c := f.category(t, "Events")
	p := f.product(t, c.ID, "Gala")

	l0 := f.levelIn(t, p.ID, "L0", "100", 1)
	l1 := f.levelIn(t, p.ID, "L1", "100", 1)
	l2 := f.levelIn(t, p.ID, "L2", "100", 1)
	l3 := f.levelIn(t, p.ID, "L3", "100", 1)

	pos, err := f.catalog.Reorder(f.ctx, Levels, l3.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 1, pos)

	require.Equal(t, 0, f.orderOf(t, "levels", l0.ID))
	require.Equal(t, 1, f.orderOf(t, "levels", l3.ID))
	require.Equal(t, 2, f.orderOf(t, "levels", l1.ID))
	require.Equal(t, 3, f.orderOf(t, "levels", l2.ID))
}

func TestOrderManager_ReorderMovesDownAndClamps(t *testing.T) {
	f := newFixture(t, 0)
	c := f.category(t, "Events")
	p := f.product(t, c.ID, "Gala")

	l0 := f.levelIn(t, p.ID, "L0", "100", 1)
	l1 := f.levelIn(t, p.ID, "L1", "100", 1)
	l2 := f.levelIn(t, p.ID, "L2", "100", 1)

	pos, err := f.catalog.Reorder(f.ctx, Levels, l0.ID, 99)
	require.NoError(t, err)
	require.Equal(t, 2, pos)

	require.Equal(t, 0, f.orderOf(t, "levels", l1.ID))
	require.Equal(t, 1, f.orderOf(t, "levels", l2.ID))
	require.Equal(t, 2, f.orderOf(t, "levels", l0.ID))

	pos, err = f.catalog.Reorder(f.ctx, Levels, l0.ID, -5)
	require.NoError(t, err)
	require.Equal(t, 0, pos)
	requireDense(t, levelOrders(t, f, p.ID))
}

func TestOrderManager_ReorderSamePositionIsNoop(t *testing.T) {
	f := newFixture(t, 0)
	c := f.category(t, "Events")
	p := f.product(t, c.ID, "Gala")
	f.levelIn(t, p.ID, "L0", "100", 1)
	l1 := f.levelIn(t, p.ID, "L1", "100", 1)

	pos, err := f.catalog.Reorder(f.ctx, Levels, l1.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 1, pos)
	requireDense(t, levelOrders(t, f, p.ID))
}

func TestOrderManager_RejectsBrokenShiftPlan(t *testing.T) {
	f := newFixture(t, 0)
	c := f.category(t, "Events")
	p := f.product(t, c.ID, "Gala")
	l0 := f.levelIn(t, p.ID, "L0", "100", 1)
	l1 := f.levelIn(t, p.ID, "L1", "100", 1)
	l2 := f.levelIn(t, p.ID, "L2", "100", 1)

	// Open a gap behind the manager's back so only one row lies in range.
	require.NoError(t, f.db.Model(&gormModels.Level{}).Where("id = ?", l2.ID).Update("sort_order", 5).Error)

	_, err := f.catalog.Reorder(f.ctx, Levels, l0.ID, 2)
	require.Error(t, err)
	require.Equal(t, constants.ErrCodeRejected, ErrorCode(err))

	require.Equal(t, 0, f.orderOf(t, "levels", l0.ID))
	require.Equal(t, 1, f.orderOf(t, "levels", l1.ID))
}

func TestOrderManager_RemoveClosesGap(t *testing.T) {
	f := newFixture(t, 0)
	c := f.category(t, "Events")
	p := f.product(t, c.ID, "Gala")
	l0 := f.levelIn(t, p.ID, "L0", "100", 1)
	l1 := f.levelIn(t, p.ID, "L1", "100", 1)
	l2 := f.levelIn(t, p.ID, "L2", "100", 1)

	require.NoError(t, f.catalog.Remove(f.ctx, Levels, l1.ID))

	require.Equal(t, 0, f.orderOf(t, "levels", l0.ID))
	require.Equal(t, 1, f.orderOf(t, "levels", l2.ID))
	requireDense(t, levelOrders(t, f, p.ID))

	err := f.catalog.Remove(f.ctx, Levels, l1.ID)
	require.Equal(t, constants.ErrCodeNotFound, ErrorCode(err))
}

func TestOrderManager_StrictModeRollsBackOnGap(t *testing.T) {
	f := newFixture(t, 0)
	c := f.category(t, "Events")
	p := f.product(t, c.ID, "Gala")
	l0 := f.levelIn(t, p.ID, "L0", "100", 1)
	f.levelIn(t, p.ID, "L1", "100", 1)
	l2 := f.levelIn(t, p.ID, "L2", "100", 1)

	require.NoError(t, f.db.Model(&gormModels.Level{}).Where("id = ?", l2.ID).Update("sort_order", 7).Error)

	_, err := f.catalog.Reorder(f.ctx, Levels, l0.ID, 1)
	require.Equal(t, constants.ErrCodeConsistency, ErrorCode(err))
	require.Equal(t, 0, f.orderOf(t, "levels", l0.ID), "failed reorder must not apply")
}

func TestOrderManager_LenientModeKeepsWrite(t *testing.T) {
	f := newFixture(t, 0)
	c := f.category(t, "Events")
	p := f.product(t, c.ID, "Gala")
	l0 := f.levelIn(t, p.ID, "L0", "100", 1)
	f.levelIn(t, p.ID, "L1", "100", 1)
	l2 := f.levelIn(t, p.ID, "L2", "100", 1)
	require.NoError(t, f.db.Model(&gormModels.Level{}).Where("id = ?", l2.ID).Update("sort_order", 7).Error)

	lenient := NewCatalogService(f.db, NewOrderManager(Invariants{Strict: false}), nil)
	pos, err := lenient.Reorder(f.ctx, Levels, l0.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 1, pos)
}

func TestOrderManager_RandomSequencesStayDense(t *testing.T) {
	f := newFixture(t, 0)
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 5; run++ {
		c := f.category(t, "Run")
		p := f.product(t, c.ID, "Scope")

		var ids []string
		for op := 0; op < 50; op++ {
			switch choice := rng.Intn(3); {
			case len(ids) == 0 || (choice == 0 && len(ids) < 20):
				l := f.levelIn(t, p.ID, "L", "10", 0)
				ids = append(ids, l.ID)
			case choice == 1:
				id := ids[rng.Intn(len(ids))]
				_, err := f.catalog.Reorder(f.ctx, Levels, id, rng.Intn(len(ids)+2)-1)
				require.NoError(t, err)
			default:
				i := rng.Intn(len(ids))
				require.NoError(t, f.catalog.Remove(f.ctx, Levels, ids[i]))
				ids = append(ids[:i], ids[i+1:]...)
			}
		}

		orders := levelOrders(t, f, p.ID)
		require.Len(t, orders, len(ids))
		requireDense(t, orders)
	}
}

func TestOrderManager_CascadeRemoveRenumbersEveryLevel(t *testing.T) {
	f := newFixture(t, 0)
	keep := f.category(t, "Keep A")
	doomed := f.category(t, "Doomed")
	last := f.category(t, "Keep B")

	p0 := f.product(t, doomed.ID, "P0")
	p1 := f.product(t, doomed.ID, "P1")
	l0 := f.levelIn(t, p0.ID, "L0", "50", 2)
	f.levelIn(t, p0.ID, "L1", "50", 2)
	f.levelIn(t, p1.ID, "L2", "50", 2)

	require.NoError(t, f.catalog.Remove(f.ctx, Categories, doomed.ID))

	require.Equal(t, 0, f.orderOf(t, "product_categories", keep.ID))
	require.Equal(t, 1, f.orderOf(t, "product_categories", last.ID))

	var activeProducts, activeLevels int64
	require.NoError(t, f.db.Model(&gormModels.Product{}).Where("category_id = ? AND is_active = ?", doomed.ID, true).Count(&activeProducts).Error)
	require.NoError(t, f.db.Model(&gormModels.Level{}).Where("product_id IN ? AND is_active = ?", []string{p0.ID, p1.ID}, true).Count(&activeLevels).Error)
	require.Zero(t, activeProducts)
	require.Zero(t, activeLevels)
	require.Zero(t, f.unattached(t, l0.ID), "stock of removed levels is dropped")
}

func TestCollectionByName(t *testing.T) {
	c, ok := CollectionByName("timelines")
	require.True(t, ok)
	require.Equal(t, Timelines, c)

	_, ok = CollectionByName("contracts")
	require.False(t, ok)
}
