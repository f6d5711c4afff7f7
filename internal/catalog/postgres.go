package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/internal/apperr"
)

const (
	insertProductSQL = `INSERT INTO products (name, description, category, price) VALUES ($1, $2, $3, $4) RETURNING id`
	insertPhotoSQL   = `INSERT INTO product_photos (product_id, position, ref) VALUES ($1, $2, $3)`
	listProductsSQL  = `SELECT id, name, description, category, price, created_at FROM products ORDER BY id`
	listPhotosSQL    = `SELECT product_id, position, ref FROM product_photos ORDER BY product_id, position`
	insertRecipient  = `INSERT INTO recipients (id, username, first_name, first_action, first_seen_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`
	listRecipientIDs = `SELECT id FROM recipients ORDER BY id`
)

type productRow struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Category    string    `db:"category"`
	Price       int64     `db:"price"`
	CreatedAt   time.Time `db:"created_at"`
}

type photoRow struct {
	ProductID int64  `db:"product_id"`
	Position  int    `db:"position"`
	Ref       string `db:"ref"`
}

// PostgresStore implements Store on top of sqlx.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an opened sqlx handle.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// InsertProduct writes the product and its ordered photos in one transaction.
func (s *PostgresStore) InsertProduct(ctx context.Context, p NewProduct) (id int64, err error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, apperr.Storage("begin_tx", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = tx.QueryRowxContext(ctx, insertProductSQL, p.Name, p.Description, p.Category, p.Price).Scan(&id); err != nil {
		return 0, apperr.Storage("insert_product", err)
	}
	for pos, ref := range p.Photos {
		if _, err = tx.ExecContext(ctx, insertPhotoSQL, id, pos, ref); err != nil {
			return 0, apperr.Storage("insert_photo", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, apperr.Storage("commit", err)
	}

	logger.Info(ctx, logger.CompCatalog, "product.insert",
		slog.String("status", "ok"),
		slog.Int64("product_id", id),
		slog.Int("photos", len(p.Photos)),
		slog.Duration("duration", time.Since(start)),
	)
	return id, nil
}

// ListProducts loads all products with their photos attached in position order.
func (s *PostgresStore) ListProducts(ctx context.Context) ([]Product, error) {
	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, listProductsSQL); err != nil {
		return nil, apperr.Storage("list_products", err)
	}
	products := make([]Product, 0, len(rows))
	if len(rows) == 0 {
		return products, nil
	}

	var photos []photoRow
	if err := s.db.SelectContext(ctx, &photos, listPhotosSQL); err != nil {
		return nil, apperr.Storage("list_photos", err)
	}
	byProduct := make(map[int64][]string, len(rows))
	for _, ph := range photos {
		byProduct[ph.ProductID] = append(byProduct[ph.ProductID], ph.Ref)
	}

	for _, r := range rows {
		products = append(products, Product{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Category:    r.Category,
			Price:       r.Price,
			Photos:      byProduct[r.ID],
			CreatedAt:   r.CreatedAt,
		})
	}
	return products, nil
}

// RegisterRecipient inserts the recipient unless the id is already known.
// A zero FirstSeenAt is stored as the current time.
func (s *PostgresStore) RegisterRecipient(ctx context.Context, r Recipient) error {
	if r.FirstSeenAt.IsZero() {
		r.FirstSeenAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, insertRecipient, r.ID, r.Username, r.FirstName, r.FirstAction, r.FirstSeenAt.UTC())
	if err != nil {
		return apperr.Storage("register_recipient", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logger.Info(ctx, logger.CompCatalog, "recipient.register",
			slog.String("status", "ok"),
			slog.Int64("user_id", r.ID),
			slog.String("username", logger.SanitizeLimit(r.Username, 64)),
		)
	}
	return nil
}

// ListRecipientIDs returns a snapshot of every registered recipient id.
func (s *PostgresStore) ListRecipientIDs(ctx context.Context) ([]int64, error) {
	ids := []int64{}
	if err := s.db.SelectContext(ctx, &ids, listRecipientIDs); err != nil {
		return nil, fmt.Errorf("catalog: %w", apperr.Storage("list_recipients", err))
	}
	return ids, nil
}
