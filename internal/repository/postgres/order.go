// Package postgres implements the order repository on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

const (
	insertOrder = `
		INSERT INTO orders (id, user_id, status, subtotal, tax, total, tax_rate, currency, shipping_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	insertItem = `
		INSERT INTO order_items (order_id, position, product_id, title, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	// Single round trip: items are aggregated into a JSON array in cart order.
	selectOrder = `
		SELECT
			o.id, o.user_id, o.status, o.subtotal, o.tax, o.total, o.tax_rate::text,
			o.currency, o.shipping_address, o.created_at, o.updated_at,
			COALESCE(
				JSONB_AGG(
					JSONB_BUILD_OBJECT(
						'product_id', oi.product_id,
						'title', oi.title,
						'unit_price', oi.unit_price,
						'quantity', oi.quantity
					) ORDER BY oi.position
				) FILTER (WHERE oi.order_id IS NOT NULL),
				'[]'::jsonb
			) AS items
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		WHERE o.id = $1
		GROUP BY o.id`

	selectUserOrders = `
		SELECT id, user_id, status, subtotal, tax, total, tax_rate::text,
			currency, shipping_address, created_at, updated_at,
			count(*) OVER() AS total_count
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	countUserOrders = `SELECT count(*) FROM orders WHERE user_id = $1`

	selectItemsForOrders = `
		SELECT order_id, product_id, title, unit_price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`

	updateStatus = `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
	now  func() time.Time
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool, now: time.Now}
}

// Create inserts the order and its items in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *domain.OrderRecord) (err error) {
	ctx, end := database.TraceQuery(ctx, "orders.Create", insertOrder)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", unavailable(err))
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, insertOrder,
		o.ID,
		o.UserID,
		string(o.Status),
		o.Subtotal,
		o.Tax,
		o.Total,
		o.TaxRate.String(),
		o.Currency,
		o.ShippingAddress,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", unavailable(err))
	}

	for i, item := range o.Items {
		_, err = tx.Exec(ctx, insertItem,
			o.ID,
			i,
			item.ProductID,
			item.Title,
			item.UnitPrice,
			item.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item %s: %w", item.ProductID, unavailable(err))
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", unavailable(err))
	}
	return nil
}

// GetByID retrieves an order by its ID with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (_ *domain.OrderRecord, err error) {
	ctx, end := database.TraceQuery(ctx, "orders.GetByID", selectOrder)
	defer func() { end(ignoreNotFound(err)) }()

	var (
		o         domain.OrderRecord
		status    string
		taxRate   string
		itemsJSON []byte
	)
	err = r.pool.QueryRow(ctx, selectOrder, id).Scan(
		&o.ID,
		&o.UserID,
		&status,
		&o.Subtotal,
		&o.Tax,
		&o.Total,
		&taxRate,
		&o.Currency,
		&o.ShippingAddress,
		&o.CreatedAt,
		&o.UpdatedAt,
		&itemsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", unavailable(err))
	}

	o.Status = domain.OrderStatus(status)
	if o.TaxRate, err = decimal.NewFromString(taxRate); err != nil {
		return nil, fmt.Errorf("parse tax rate %q: %w", taxRate, err)
	}

	o.Items = []domain.LineItem{}
	if len(itemsJSON) > 0 {
		if err = json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	return &o, nil
}

// ListByUser returns a page of the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, page pagination.Params) (_ []domain.OrderRecord, _ int, err error) {
	ctx, end := database.TraceQuery(ctx, "orders.ListByUser", selectUserOrders)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, selectUserOrders, userID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", unavailable(err))
	}
	defer rows.Close()

	var total int
	orders := make([]domain.OrderRecord, 0, page.PerPage)
	for rows.Next() {
		var (
			o       domain.OrderRecord
			status  string
			taxRate string
		)
		if err = rows.Scan(
			&o.ID,
			&o.UserID,
			&status,
			&o.Subtotal,
			&o.Tax,
			&o.Total,
			&taxRate,
			&o.Currency,
			&o.ShippingAddress,
			&o.CreatedAt,
			&o.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		o.Status = domain.OrderStatus(status)
		if o.TaxRate, err = decimal.NewFromString(taxRate); err != nil {
			return nil, 0, fmt.Errorf("parse tax rate %q: %w", taxRate, err)
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	if len(orders) == 0 {
		// The window count is only seen on returned rows, so a page past
		// the end has to count separately.
		if page.Offset() > 0 {
			if err = r.pool.QueryRow(ctx, countUserOrders, userID).Scan(&total); err != nil {
				return nil, 0, fmt.Errorf("count orders: %w", unavailable(err))
			}
		}
		return orders, total, nil
	}
	if err = r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// attachItems batch-loads the items of every order in one query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []domain.OrderRecord) error {
	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	rows, err := r.pool.Query(ctx, selectItemsForOrders, ids)
	if err != nil {
		return fmt.Errorf("load order items: %w", unavailable(err))
	}
	defer rows.Close()

	byOrder := make(map[string][]domain.LineItem, len(orders))
	for rows.Next() {
		var (
			orderID string
			item    domain.LineItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Title, &item.UnitPrice, &item.Quantity); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		byOrder[orderID] = append(byOrder[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order item rows: %w", err)
	}

	for i := range orders {
		if items, ok := byOrder[orders[i].ID]; ok {
			orders[i].Items = items
		} else {
			orders[i].Items = []domain.LineItem{}
		}
	}
	return nil
}

// UpdateStatus performs a compare-and-set on the order status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (err error) {
	ctx, end := database.TraceQuery(ctx, "orders.UpdateStatus", updateStatus)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, updateStatus, string(to), r.now().UTC(), id, string(from))
	if err != nil {
		return fmt.Errorf("update order status: %w", unavailable(err))
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Conflict(fmt.Sprintf("order %s is no longer %s", id, from))
	}
	return nil
}

// unavailable tags connectivity failures so they surface as 503.
func unavailable(err error) error {
	if database.IsTransient(err) {
		return fmt.Errorf("%w: %w", apperrors.ErrServiceUnavail, err)
	}
	return err
}

// ignoreNotFound keeps expected misses out of span error status.
func ignoreNotFound(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	return err
}
