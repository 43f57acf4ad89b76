package domain

import "context"

// Category classifies events. Names are unique.
// swagger:model Category
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CategoryRepository defines storage operations for categories. Create and
// Update return ErrConflict on a duplicate name.
type CategoryRepository interface {
	Create(ctx context.Context, category *Category) error
	GetByID(ctx context.Context, id int64) (*Category, error)
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, params PaginationParams) ([]*Category, int, error)
}

// CategoryService is the category directory consumed by the event lifecycle
// manager plus its admin CRUD surface.
type CategoryService interface {
	Create(ctx context.Context, name string) (*Category, error)
	Update(ctx context.Context, id int64, name string) (*Category, error)
	// Delete removes a category; it fails with ErrConflict while any event
	// still references it.
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Category, error)
	List(ctx context.Context, params PaginationParams) ([]*Category, int, error)
}
