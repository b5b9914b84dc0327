package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/catalogman/internal/model"
)

// PostgresItemRepo はPostgreSQLを使用したアイテムリポジトリ。
type PostgresItemRepo struct {
	db *sql.DB
}

// NewPostgresItemRepo はPostgresItemRepoを生成する。
func NewPostgresItemRepo(db *sql.DB) *PostgresItemRepo {
	return &PostgresItemRepo{db: db}
}

const itemColumns = `id, name, description, category_id, image, user_id, pub_date, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }, item *model.Item) error {
	return row.Scan(&item.ID, &item.Name, &item.Description, &item.CategoryID,
		&item.Image, &item.UserID, &item.PubDate, &item.CreatedAt, &item.UpdatedAt)
}

// FindByName はアイテム名でアイテムを検索する。見つからない場合はnilを返す。
func (r *PostgresItemRepo) FindByName(ctx context.Context, name string) (*model.Item, error) {
	item := &model.Item{}
	err := scanItem(r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE name = $1`,
		name,
	), item)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find item by name: %w", err)
	}

	return item, nil
}

// FindByNameWithOwner はアイテム名でアイテムと所有者名を取得する。
// 見つからない場合はnilを返す。
func (r *PostgresItemRepo) FindByNameWithOwner(ctx context.Context, name string) (*model.ItemWithOwner, error) {
	item := &model.ItemWithOwner{}
	err := r.db.QueryRowContext(ctx,
		`SELECT i.id, i.name, i.description, i.category_id, i.image, i.user_id, i.pub_date, i.created_at, i.updated_at, u.name
		 FROM items i
		 JOIN users u ON u.id = i.user_id
		 WHERE i.name = $1`,
		name,
	).Scan(&item.ID, &item.Name, &item.Description, &item.CategoryID,
		&item.Image, &item.UserID, &item.PubDate, &item.CreatedAt, &item.UpdatedAt,
		&item.OwnerName)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find item with owner: %w", err)
	}

	return item, nil
}

// ListByCategoryID は指定カテゴリのアイテムをname昇順で返す。
func (r *PostgresItemRepo) ListByCategoryID(ctx context.Context, categoryID string) ([]*model.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE category_id = $1 ORDER BY name ASC`,
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list items by category: %w", err)
	}
	defer rows.Close()

	var items []*model.Item
	for rows.Next() {
		item := &model.Item{}
		if err := scanItem(rows, item); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return items, nil
}

// ListRecent は最新アイテムをpub_date降順でlimit件返す。
func (r *PostgresItemRepo) ListRecent(ctx context.Context, limit int) ([]*model.ItemWithOwner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT i.id, i.name, i.description, i.category_id, i.image, i.user_id, i.pub_date, i.created_at, i.updated_at, u.name
		 FROM items i
		 JOIN users u ON u.id = i.user_id
		 ORDER BY i.pub_date DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent items: %w", err)
	}
	defer rows.Close()

	var items []*model.ItemWithOwner
	for rows.Next() {
		item := &model.ItemWithOwner{}
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.CategoryID,
			&item.Image, &item.UserID, &item.PubDate, &item.CreatedAt, &item.UpdatedAt,
			&item.OwnerName); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return items, nil
}

// Create はアイテムを作成する。nameの重複はそのまま伝播する。
func (r *PostgresItemRepo) Create(ctx context.Context, item *model.Item) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO items (id, name, description, category_id, image, user_id, pub_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		item.ID, item.Name, item.Description, item.CategoryID, item.Image,
		item.UserID, item.PubDate, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// Update はアイテムを上書き更新する。
func (r *PostgresItemRepo) Update(ctx context.Context, item *model.Item) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE items
		 SET name = $2, description = $3, category_id = $4, image = $5, updated_at = now()
		 WHERE id = $1`,
		item.ID, item.Name, item.Description, item.CategoryID, item.Image,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("item not found: %s", item.ID)
	}
	return nil
}

// DeleteByID は指定IDのアイテムを削除する。
func (r *PostgresItemRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM items WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("item not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ ItemRepository = (*PostgresItemRepo)(nil)
