package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/caixahub/caixahub/internal/common"
	"github.com/caixahub/caixahub/internal/model"
)

// GetCategories returns all active categories ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, COALESCE(type, ''), is_active, created_at
		FROM categories WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var category model.Category
		var ctype string
		if err := rows.Scan(&category.ID, &category.Name, &category.Description,
			&ctype, &category.IsActive, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		category.Type = model.CategoryType(ctype)
		categories = append(categories, category)
	}

	return categories, rows.Err()
}

// GetCategoryByName retrieves a category by its unique name.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	return s.getCategory(ctx, `name = ?`, name)
}

// GetCategoryByID retrieves a category by ID.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id int) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, fmt.Errorf("category id must be positive")
	}

	return s.getCategory(ctx, `id = ?`, id)
}

// CreateCategory adds a new category.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name, description string, categoryType model.CategoryType) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	switch categoryType {
	case model.CategoryTypeIncome, model.CategoryTypeExpense, model.CategoryTypeSystem:
	case "":
		categoryType = model.CategoryTypeExpense
	default:
		return nil, fmt.Errorf("invalid category type: %s", categoryType)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, description, type) VALUES (?, ?, ?)`,
		name, description, string(categoryType))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, fmt.Errorf("category %q: %w", name, common.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return s.GetCategoryByName(ctx, name)
}

func (s *SQLiteStorage) getCategory(ctx context.Context, where string, arg any) (*model.Category, error) {
	var category model.Category
	var ctype string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, COALESCE(type, ''), is_active, created_at
		FROM categories WHERE `+where, arg,
	).Scan(&category.ID, &category.Name, &category.Description,
		&ctype, &category.IsActive, &category.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %v: %w", arg, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	category.Type = model.CategoryType(ctype)
	return &category, nil
}
