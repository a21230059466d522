package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/stockpilot/stockpilot-go/internal/model"
)

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrDuplicateProductName  = errors.New("product name already exists")
	ErrDuplicateInternalCode = errors.New("internal code already exists")
)

const productColumns = `id, user_id, name, description, price_cents, cost_cents, platform, img_url,
	internal_code, stock_quantity, inactive, created_at, updated_at`

// ProductRepository handles product persistence operations. Every mutation
// is scoped by user_id in SQL in addition to the service-level ownership check.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a product and sets its generated ID.
func (r *ProductRepository) Create(ctx context.Context, p *model.Product) error {
	query := `INSERT INTO products
		(user_id, name, description, price_cents, cost_cents, platform, img_url, internal_code, stock_quantity, inactive)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		p.UserID, p.Name, nullString(p.Description), int64(p.Price), int64(p.Cost),
		nullString(p.Platform), nullString(p.ImgURL), p.InternalCode, p.StockQuantity, p.Inactive,
	)
	if err != nil {
		return mapProductError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

// GetByID retrieves a product regardless of owner; callers gate ownership.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`
	return scanProduct(r.db.QueryRowContext(ctx, query, id))
}

// ListByUser returns a user's products, newest first.
func (r *ProductRepository) ListByUser(ctx context.Context, userID int64, f model.ProductFilter) ([]model.Product, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + productColumns + ` FROM products WHERE user_id = ?`)
	args := []any{userID}

	if !f.IncludeInactive {
		b.WriteString(` AND inactive = FALSE`)
	}
	if f.Platform != "" {
		b.WriteString(` AND platform = ?`)
		args = append(args, f.Platform)
	}
	if f.Search != "" {
		b.WriteString(` AND (name LIKE ? OR internal_code LIKE ?)`)
		like := "%" + escapeLike(f.Search) + "%"
		args = append(args, like, like)
	}
	b.WriteString(` ORDER BY created_at DESC, id DESC`)

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	return products, rows.Err()
}

// NameExists reports whether userID already has a product called name,
// ignoring the product excludeID (0 to ignore none).
func (r *ProductRepository) NameExists(ctx context.Context, userID int64, name string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE user_id = ? AND name = ? AND id <> ?)`,
		userID, name, excludeID,
	).Scan(&exists)
	return exists, err
}

// InternalCodeExists reports whether code is used by any product other than excludeID.
func (r *ProductRepository) InternalCodeExists(ctx context.Context, code string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE internal_code = ? AND id <> ?)`,
		code, excludeID,
	).Scan(&exists)
	return exists, err
}

// Update applies the supplied fields and returns the stored row.
func (r *ProductRepository) Update(ctx context.Context, userID, id int64, patch model.ProductPatch) (*model.Product, error) {
	sets, args := productAssignments(patch)
	if len(sets) == 0 {
		return r.getOwned(ctx, r.db, userID, id)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `UPDATE products SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND user_id = ?`
	if _, err := tx.ExecContext(ctx, query, append(args, id, userID)...); err != nil {
		return nil, mapProductError(err)
	}

	p, err := r.getOwned(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

// ToggleInactive flips the inactive flag and returns the stored row.
func (r *ProductRepository) ToggleInactive(ctx context.Context, userID, id int64) (*model.Product, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE products SET inactive = NOT inactive WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, err
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrProductNotFound
	}

	p, err := r.getOwned(ctx, tx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a product owned by userID.
func (r *ProductRepository) Delete(ctx context.Context, userID, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *ProductRepository) getOwned(ctx context.Context, q queryRower, userID, id int64) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ? AND user_id = ?`
	return scanProduct(q.QueryRowContext(ctx, query, id, userID))
}

func productAssignments(p model.ProductPatch) ([]string, []any) {
	var sets []string
	var args []any
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullString(*p.Description))
	}
	if p.Price != nil {
		sets = append(sets, "price_cents = ?")
		args = append(args, int64(*p.Price))
	}
	if p.Cost != nil {
		sets = append(sets, "cost_cents = ?")
		args = append(args, int64(*p.Cost))
	}
	if p.Platform != nil {
		sets = append(sets, "platform = ?")
		args = append(args, nullString(*p.Platform))
	}
	if p.ImgURL != nil {
		sets = append(sets, "img_url = ?")
		args = append(args, nullString(*p.ImgURL))
	}
	if p.InternalCode != nil {
		sets = append(sets, "internal_code = ?")
		args = append(args, *p.InternalCode)
	}
	if p.StockQuantity != nil {
		sets = append(sets, "stock_quantity = ?")
		args = append(args, *p.StockQuantity)
	}
	return sets, args
}

func mapProductError(err error) error {
	switch duplicateKey(err) {
	case "":
		return err
	case "uq_products_internal_code":
		return ErrDuplicateInternalCode
	default:
		return ErrDuplicateProductName
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	p := &model.Product{}
	var description, platform, imgURL sql.NullString
	var price, cost int64
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &description, &price, &cost, &platform, &imgURL,
		&p.InternalCode, &p.StockQuantity, &p.Inactive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	p.Description = description.String
	p.Platform = platform.String
	p.ImgURL = imgURL.String
	p.Price = model.Cents(price)
	p.Cost = model.Cents(cost)
	return p, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
