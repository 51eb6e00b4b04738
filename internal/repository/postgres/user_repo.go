package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Hemant-14942/CodeArena/internal/domain"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type UserRepo struct {
	DB *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

const userSelectFields = `id, username, email, password_hash, is_admin, avatar, bio, github, linkedin, website, COALESCE(google_id, ''), created_at`

// scanUser returns nil, nil when the row does not exist.
func scanUser(row interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.IsAdmin,
		&u.Avatar,
		&u.Bio,
		&u.Links.GitHub,
		&u.Links.LinkedIn,
		&u.Links.Website,
		&u.GoogleID,
		&u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts u. A taken email or username yields domain.ErrDuplicateUser.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `
	INSERT INTO users (id, username, email, password_hash, is_admin, avatar, bio, github, linkedin, website, google_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING created_at;
	`
	var googleID any
	if u.GoogleID != "" {
		googleID = u.GoogleID
	}

	err := r.DB.QueryRowContext(ctx, query,
		u.ID, u.Username, u.Email, u.PasswordHash, u.IsAdmin, u.Avatar, u.Bio,
		u.Links.GitHub, u.Links.LinkedIn, u.Links.Website, googleID,
	).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userSelectFields + ` FROM users WHERE email = $1;`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, strings.ToLower(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userSelectFields + ` FROM users WHERE id = $1;`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *UserRepo) FindByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	query := `SELECT ` + userSelectFields + ` FROM users WHERE google_id = $1;`
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, googleID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// LinkGoogleID attaches a Google account to an existing user.
func (r *UserRepo) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET google_id = $2 WHERE id = $1;`, userID, googleID)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("failed to link google id: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to link google id: user %s not found", userID)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
