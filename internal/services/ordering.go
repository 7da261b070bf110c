package services

import (
	"context"
	"fmt"
	"time"

	"chamberhub/campaigns/internal/metrics"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Collection describes one kind of ordered sibling set: the rows of Table
// sharing the same ParentColumn value. Only active rows are siblings.
type Collection struct {
	Name         string
	Table        string
	ParentTable  string
	ParentColumn string
}

var (
	Categories = Collection{Name: "categories", Table: "product_categories", ParentTable: "campaigns", ParentColumn: "campaign_id"}
	Products   = Collection{Name: "products", Table: "products", ParentTable: "product_categories", ParentColumn: "category_id"}
	Levels     = Collection{Name: "levels", Table: "levels", ParentTable: "products", ParentColumn: "product_id"}
	Incentives = Collection{Name: "incentives", Table: "incentives", ParentTable: "campaigns", ParentColumn: "campaign_id"}
	Timelines  = Collection{Name: "timelines", Table: "timelines", ParentTable: "campaigns", ParentColumn: "campaign_id"}
)

// CollectionByName resolves the collection names used in reorder routes.
func CollectionByName(name string) (Collection, bool) {
	for _, c := range []Collection{Categories, Products, Levels, Incentives, Timelines} {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

type orderedRow struct {
	ID        string
	ParentID  string
	SortOrder int
	IsActive  bool
}

// OrderManager keeps every sibling set densely numbered 0..n-1. All methods
// run inside the caller's transaction and lock the parent row first, so two
// writers in the same set serialise.
type OrderManager struct {
	invariants Invariants
	now        func() time.Time
}

func NewOrderManager(invariants Invariants) *OrderManager {
	return &OrderManager{invariants: invariants, now: time.Now}
}

func (m *OrderManager) siblings(tx *gorm.DB, c Collection, parentID string) *gorm.DB {
	return tx.Table(c.Table).Where(c.ParentColumn+" = ? AND is_active = ?", parentID, true)
}

// LockParent takes the row lock that guards the sibling set of parentID.
func (m *OrderManager) LockParent(ctx context.Context, tx *gorm.DB, c Collection, parentID string) error {
	var ids []string
	err := tx.WithContext(ctx).
		Table(c.ParentTable).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", parentID).
		Pluck("id", &ids).Error
	if err != nil {
		return fmt.Errorf("failed to lock %s parent: %w", c.Name, err)
	}
	if len(ids) == 0 {
		return NotFound(c.ParentTable + " row")
	}
	return nil
}

func (m *OrderManager) load(ctx context.Context, tx *gorm.DB, c Collection, id string) (*orderedRow, error) {
	var rows []orderedRow
	err := tx.WithContext(ctx).
		Table(c.Table).
		Select("id, "+c.ParentColumn+" AS parent_id, sort_order, is_active").
		Where("id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s row: %w", c.Name, err)
	}
	if len(rows) == 0 || !rows[0].IsActive {
		return nil, NotFound(c.Name + " item")
	}
	return &rows[0], nil
}

// loadLocked reads the row, locks its parent and reads it again, since the
// position may have moved while waiting for the lock.
func (m *OrderManager) loadLocked(ctx context.Context, tx *gorm.DB, c Collection, id string) (*orderedRow, error) {
	row, err := m.load(ctx, tx, c, id)
	if err != nil {
		return nil, err
	}
	if err := m.LockParent(ctx, tx, c, row.ParentID); err != nil {
		return nil, err
	}
	return m.load(ctx, tx, c, id)
}

func (m *OrderManager) count(ctx context.Context, tx *gorm.DB, c Collection, parentID string) (int, error) {
	var n int64
	if err := m.siblings(tx.WithContext(ctx), c, parentID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.Name, err)
	}
	return int(n), nil
}

// Append locks the set and returns the position for a new last element.
func (m *OrderManager) Append(ctx context.Context, tx *gorm.DB, c Collection, parentID string) (int, error) {
	if err := m.LockParent(ctx, tx, c, parentID); err != nil {
		return 0, err
	}
	return m.count(ctx, tx, c, parentID)
}

// Reorder moves the element to target, clamped to [0, n-1], shifting the
// siblings in between by one. The number of shifted rows must equal the
// distance moved or the transaction is rejected.
func (m *OrderManager) Reorder(ctx context.Context, tx *gorm.DB, c Collection, id string, target int) (int, error) {
	row, err := m.loadLocked(ctx, tx, c, id)
	if err != nil {
		return 0, err
	}

	n, err := m.count(ctx, tx, c, row.ParentID)
	if err != nil {
		return 0, err
	}
	if target < 0 {
		target = 0
	}
	if target > n-1 {
		target = n - 1
	}

	old := row.SortOrder
	if target == old {
		return old, nil
	}

	var res *gorm.DB
	expected := target - old
	if old < target {
		res = m.siblings(tx.WithContext(ctx), c, row.ParentID).
			Where("sort_order > ? AND sort_order <= ?", old, target).
			UpdateColumn("sort_order", gorm.Expr("sort_order - 1"))
	} else {
		expected = old - target
		res = m.siblings(tx.WithContext(ctx), c, row.ParentID).
			Where("sort_order >= ? AND sort_order < ?", target, old).
			UpdateColumn("sort_order", gorm.Expr("sort_order + 1"))
	}
	if res.Error != nil {
		return 0, fmt.Errorf("failed to shift %s: %w", c.Name, res.Error)
	}
	if res.RowsAffected != int64(expected) {
		return 0, Rejection("%s changed concurrently: shifted %d rows, expected %d", c.Name, res.RowsAffected, expected)
	}

	err = tx.WithContext(ctx).Table(c.Table).Where("id = ?", id).UpdateColumn("sort_order", target).Error
	if err != nil {
		return 0, fmt.Errorf("failed to move %s: %w", c.Name, err)
	}

	metrics.Get().ReordersTotal.WithLabelValues(c.Name).Inc()
	return target, m.Verify(ctx, tx, c, row.ParentID)
}

// Remove soft-deletes the element and closes the gap it leaves.
func (m *OrderManager) Remove(ctx context.Context, tx *gorm.DB, c Collection, id string) error {
	row, err := m.loadLocked(ctx, tx, c, id)
	if err != nil {
		return err
	}

	err = tx.WithContext(ctx).Table(c.Table).Where("id = ?", id).
		UpdateColumns(map[string]interface{}{"is_active": false, "deleted_at": m.now()}).Error
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", c.Name, err)
	}

	err = m.siblings(tx.WithContext(ctx), c, row.ParentID).
		Where("sort_order > ?", row.SortOrder).
		UpdateColumn("sort_order", gorm.Expr("sort_order - 1")).Error
	if err != nil {
		return fmt.Errorf("failed to renumber %s: %w", c.Name, err)
	}

	return m.Verify(ctx, tx, c, row.ParentID)
}

// Verify checks that the active siblings hold exactly 0..n-1.
func (m *OrderManager) Verify(ctx context.Context, tx *gorm.DB, c Collection, parentID string) error {
	var orders []int
	err := m.siblings(tx.WithContext(ctx), c, parentID).
		Order("sort_order").
		Pluck("sort_order", &orders).Error
	if err != nil {
		return fmt.Errorf("failed to read %s order: %w", c.Name, err)
	}

	for i, o := range orders {
		if o != i {
			return m.invariants.Check("order_density",
				fmt.Errorf("%s under %s: position %d holds order %d", c.Name, parentID, i, o),
				"collection", c.Name, "parent_id", parentID)
		}
	}
	return nil
}
