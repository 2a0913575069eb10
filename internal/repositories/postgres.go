package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/myphotos/backend/internal/db"
	"github.com/myphotos/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, login, nickname, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, user.ID, user.Login, user.Nickname, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByLogin fetches a user by their login.
func (r *PostgresUserRepository) FindByLogin(ctx context.Context, login string) (models.User, error) {
	return r.findOne(ctx, "login", login)
}

// FindByID fetches a user by id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "id", id)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, column, value string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// column is always one of the two literals above.
	row := conn.QueryRow(ctx, `
        SELECT id, login, nickname, password_hash, created_at, updated_at
        FROM users
        WHERE `+column+` = $1
    `, value)

	var user models.User
	if err := row.Scan(&user.ID, &user.Login, &user.Nickname, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by %s: %w", column, err)
	}

	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

// PostgresImageRepository provides PostgreSQL-backed persistence for photo records.
type PostgresImageRepository struct {
	pool db.Pool
}

// NewPostgresImageRepository constructs an image repository backed by PostgreSQL.
func NewPostgresImageRepository(pool db.Pool) *PostgresImageRepository {
	return &PostgresImageRepository{pool: pool}
}

// Create stores a new photo record.
func (r *PostgresImageRepository) Create(ctx context.Context, image models.Image) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO images (id, owner_id, file_name, created_at)
        VALUES ($1, $2, $3, $4)
    `, image.ID, image.OwnerID, image.FileName, image.CreatedAt)
	if err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return ErrConflict
		case pgForeignKeyViolation:
			return ErrNotFound
		}
		return fmt.Errorf("insert image: %w", err)
	}

	return nil
}

// ListByOwner returns every photo owned by the user, newest first.
func (r *PostgresImageRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Image, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, owner_id, file_name, created_at
        FROM images
        WHERE owner_id = $1
        ORDER BY created_at DESC, file_name
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	images := []models.Image{}
	for rows.Next() {
		var image models.Image
		if err := rows.Scan(&image.ID, &image.OwnerID, &image.FileName, &image.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		image.CreatedAt = image.CreatedAt.UTC()
		images = append(images, image)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}

	return images, nil
}

// Find loads a single photo record by owner and file name.
func (r *PostgresImageRepository) Find(ctx context.Context, ownerID, fileName string) (models.Image, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Image{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var image models.Image
	err = conn.QueryRow(ctx, `
        SELECT id, owner_id, file_name, created_at
        FROM images
        WHERE owner_id = $1 AND file_name = $2
    `, ownerID, fileName).Scan(&image.ID, &image.OwnerID, &image.FileName, &image.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Image{}, ErrNotFound
		}
		return models.Image{}, fmt.Errorf("select image: %w", err)
	}

	image.CreatedAt = image.CreatedAt.UTC()
	return image, nil
}

// Delete removes a photo record by identifier.
func (r *PostgresImageRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ ImageRepository = (*PostgresImageRepository)(nil)
