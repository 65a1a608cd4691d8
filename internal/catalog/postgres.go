package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-cart/internal/pricing"
)

// DBTX is the subset of pgxpool.Pool used by PostgresCatalog.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const (
	listProductsSQL     = `SELECT id, name, price::text, stock FROM products ORDER BY position, id`
	getProductSQL       = `SELECT id, name, price::text, stock FROM products WHERE id = $1`
	listDiscountsSQL    = `SELECT product_id, quantity, rate::text FROM product_discounts ORDER BY product_id, quantity`
	productDiscountsSQL = `SELECT product_id, quantity, rate::text FROM product_discounts WHERE product_id = $1 ORDER BY quantity`
	listCouponsSQL      = `SELECT code, name, discount_type, discount_value::text FROM coupons ORDER BY position, code`
	getCouponSQL        = `SELECT code, name, discount_type, discount_value::text FROM coupons WHERE code = $1`

	upsertProductSQL = `INSERT INTO products (id, name, price, stock, position)
VALUES ($1, $2, $3::numeric, $4, $5)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, stock = EXCLUDED.stock, position = EXCLUDED.position`
	deleteDiscountsSQL = `DELETE FROM product_discounts WHERE product_id = $1`
	insertDiscountSQL  = `INSERT INTO product_discounts (product_id, quantity, rate) VALUES ($1, $2, $3::numeric)`
	upsertCouponSQL    = `INSERT INTO coupons (code, name, discount_type, discount_value, position)
VALUES ($1, $2, $3, $4::numeric, $5)
ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, discount_type = EXCLUDED.discount_type, discount_value = EXCLUDED.discount_value, position = EXCLUDED.position`
)

// PostgresCatalog reads products, discount tables and coupons from Postgres.
type PostgresCatalog struct {
	db DBTX
}

// NewPostgres constructs a PostgresCatalog.
func NewPostgres(db DBTX) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

// ListProducts implements Catalog.
func (c *PostgresCatalog) ListProducts(ctx context.Context) ([]pricing.Product, error) {
	rows, err := c.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	products, err := scanProducts(rows)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	rows, err = c.db.Query(ctx, listDiscountsSQL)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	discounts, err := scanDiscounts(rows)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %w", err)
	}
	for i := range products {
		products[i].Discounts = discounts[products[i].ID]
		if products[i].Discounts == nil {
			products[i].Discounts = []pricing.DiscountRule{}
		}
	}
	return products, nil
}

// GetProduct implements Catalog.
func (c *PostgresCatalog) GetProduct(ctx context.Context, id string) (pricing.Product, error) {
	var (
		p     pricing.Product
		price string
	)
	err := c.db.QueryRow(ctx, getProductSQL, id).Scan(&p.ID, &p.Name, &price, &p.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Product{}, ErrNotFound
		}
		return pricing.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return pricing.Product{}, fmt.Errorf("get product %s: parse price: %w", id, err)
	}
	rows, err := c.db.Query(ctx, productDiscountsSQL, id)
	if err != nil {
		return pricing.Product{}, fmt.Errorf("get product %s discounts: %w", id, err)
	}
	discounts, err := scanDiscounts(rows)
	if err != nil {
		return pricing.Product{}, fmt.Errorf("get product %s discounts: %w", id, err)
	}
	p.Discounts = discounts[id]
	if p.Discounts == nil {
		p.Discounts = []pricing.DiscountRule{}
	}
	return p, nil
}

// ListCoupons implements Catalog.
func (c *PostgresCatalog) ListCoupons(ctx context.Context) ([]pricing.Coupon, error) {
	rows, err := c.db.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()
	var coupons []pricing.Coupon
	for rows.Next() {
		var code, name, kind, value string
		if err := rows.Scan(&code, &name, &kind, &value); err != nil {
			return nil, fmt.Errorf("list coupons: %w", err)
		}
		coupon, err := toCoupon(code, name, kind, value)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, coupon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

// GetCoupon implements Catalog.
func (c *PostgresCatalog) GetCoupon(ctx context.Context, code string) (pricing.Coupon, error) {
	var name, kind, value string
	err := c.db.QueryRow(ctx, getCouponSQL, code).Scan(&code, &name, &kind, &value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.Coupon{}, ErrNotFound
		}
		return pricing.Coupon{}, fmt.Errorf("get coupon %s: %w", code, err)
	}
	return toCoupon(code, name, kind, value)
}

// Upsert writes products, their discount tables and coupons in one transaction. List
// order is stored so reads return entries in the order they were supplied.
func (c *PostgresCatalog) Upsert(ctx context.Context, products []pricing.Product, coupons []pricing.Coupon) error {
	if err := Validate(products, coupons); err != nil {
		return err
	}
	tx, err := c.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for pos, p := range products {
		if _, err := tx.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price.String(), p.Stock, pos); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
		if _, err := tx.Exec(ctx, deleteDiscountsSQL, p.ID); err != nil {
			return fmt.Errorf("reset discounts %s: %w", p.ID, err)
		}
		for _, d := range p.Discounts {
			if _, err := tx.Exec(ctx, insertDiscountSQL, p.ID, d.Quantity, d.Rate.String()); err != nil {
				return fmt.Errorf("insert discount %s: %w", p.ID, err)
			}
		}
	}
	for pos, cp := range coupons {
		if _, err := tx.Exec(ctx, upsertCouponSQL, cp.Code, cp.Name, string(cp.Type), cp.Value.String(), pos); err != nil {
			return fmt.Errorf("upsert coupon %s: %w", cp.Code, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

func scanProducts(rows pgx.Rows) ([]pricing.Product, error) {
	defer rows.Close()
	var products []pricing.Product
	for rows.Next() {
		var (
			p     pricing.Product
			price string
		)
		if err := rows.Scan(&p.ID, &p.Name, &price, &p.Stock); err != nil {
			return nil, err
		}
		parsed, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse price of %s: %w", p.ID, err)
		}
		p.Price = parsed
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanDiscounts(rows pgx.Rows) (map[string][]pricing.DiscountRule, error) {
	defer rows.Close()
	out := map[string][]pricing.DiscountRule{}
	for rows.Next() {
		var (
			productID string
			quantity  int
			rate      string
		)
		if err := rows.Scan(&productID, &quantity, &rate); err != nil {
			return nil, err
		}
		parsed, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("parse rate of %s: %w", productID, err)
		}
		out[productID] = append(out[productID], pricing.DiscountRule{Quantity: quantity, Rate: parsed})
	}
	return out, rows.Err()
}

func toCoupon(code, name, kind, value string) (pricing.Coupon, error) {
	typ, err := pricing.ParseCouponType(kind)
	if err != nil {
		return pricing.Coupon{}, fmt.Errorf("coupon %s: discount type %q: %w", code, kind, err)
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return pricing.Coupon{}, fmt.Errorf("coupon %s: parse value: %w", code, err)
	}
	return pricing.Coupon{Code: code, Name: name, Type: typ, Value: parsed}, nil
}
