package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/cuthanhcam/sport-field-booking/internal/utils"
)

// User mirrors the 'users' table joined with its role name.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	RoleID       uint8
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// RoleIDByName resolves a role name (OWNER, CUSTOMER) to its id.
func (r *UserRepo) RoleIDByName(ctx context.Context, name string) (uint8, error) {
	var id uint8
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM roles WHERE name=? LIMIT 1",
		strings.ToUpper(strings.TrimSpace(name))).Scan(&id)
	return id, err
}

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password string, roleID uint8, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role_id) VALUES (?,?,?)",
		email, hash, roleID)
	if err != nil {
		if IsDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

const userSelect = `SELECT u.id, u.email, u.password_hash, u.role_id, r.name, u.is_active, u.created_at, u.updated_at
	FROM users u JOIN roles r ON r.id = u.role_id`

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u User
	err := r.DB.QueryRowContext(ctx, userSelect+" WHERE u.email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.RoleID, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx, userSelect+" WHERE u.id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.RoleID, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
