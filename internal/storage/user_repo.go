package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_user_store.go -package=mocks flowmind/internal/storage UserStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrDuplicateUser is returned when a registration collides with an
	// existing username or email. Callers show "credentials taken"; every
	// other storage error is surfaced as a generic failure.
	ErrDuplicateUser = errors.New("username or email already exists")
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// UserStore defines the interface for user storage operations.
type UserStore interface {
	// Register inserts a new user record. The password must already be hashed.
	// Returns ErrDuplicateUser if the username or email is taken.
	Register(ctx context.Context, user *UserRecord) error
	// FetchCredentials returns a username -> credential mapping for every user.
	FetchCredentials(ctx context.Context) (map[string]Credential, error)
	// GetByUsername returns the full record for a user.
	// Returns nil and ErrNotFound if not found.
	GetByUsername(ctx context.Context, username string) (*UserRecord, error)
}

// UserRepo provides methods for user operations.
// It implements the UserStore interface.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Register inserts a new user record. Uniqueness of username and email is
// enforced by the UNIQUE constraints on the table, so two concurrent
// registrations for the same credentials cannot both succeed.
func (r *UserRepo) Register(ctx context.Context, user *UserRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password, email, full_name, organization)
		 VALUES (?, ?, ?, ?, ?)`,
		user.Username, user.PasswordHash, user.Email, user.FullName, user.Organization,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// FetchCredentials returns a username -> credential mapping for every user.
// Used only for authentication lookups. Loads the full table; fine at this
// scale, revisit with pagination if the user base grows.
func (r *UserRepo) FetchCredentials(ctx context.Context) (map[string]Credential, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT username, password, full_name FROM users")
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	credentials := make(map[string]Credential)
	for rows.Next() {
		var username, passwordHash, fullName string
		if err := rows.Scan(&username, &passwordHash, &fullName); err != nil {
			return nil, fmt.Errorf("failed to scan credential row: %w", err)
		}
		credentials[username] = Credential{
			FullName:     fullName,
			PasswordHash: passwordHash,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credential rows: %w", err)
	}

	return credentials, nil
}

// GetByUsername returns the full record for a user.
// Returns nil and ErrNotFound if not found.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*UserRecord, error) {
	var user UserRecord
	var createdAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, username, password, email, full_name, organization, created_at FROM users WHERE username = ?",
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Email, &user.FullName, &user.Organization, &createdAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	// Parse created_at DATETIME string
	user.CreatedAt, err = time.Parse("2006-01-02 15:04:05", createdAtStr)
	if err != nil {
		// Try alternative format (SQLite might use different format)
		user.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
		}
	}

	return &user, nil
}
