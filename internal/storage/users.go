package storage

import (
	"context"
	"fmt"
)

const (
	insertUserSQL = `INSERT INTO users (
        id,
        name,
        email,
        password_hash,
        role
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    RETURNING created_at;`

	getUserByEmailSQL = `SELECT id, name, email, password_hash, role, created_at
    FROM users
    WHERE email = $1;`
)

// CreateUser inserts an account. Emails are unique.
func (s *Store) CreateUser(ctx context.Context, user User) (User, error) {
	pool, err := s.getPool()
	if err != nil {
		return User{}, err
	}

	user.ID = newID()
	row := pool.QueryRow(ctx, insertUserSQL, user.ID, user.Name, user.Email, user.PasswordHash, user.Role)
	if scanErr := row.Scan(&user.CreatedAt); scanErr != nil {
		if mapped := conflict(scanErr, "user already exists"); mapped != scanErr {
			return User{}, mapped
		}
		return User{}, fmt.Errorf("insert user: %w", scanErr)
	}
	return user, nil
}

// GetUserByEmail loads an account by its email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	pool, err := s.getPool()
	if err != nil {
		return User{}, err
	}

	var u User
	if scanErr := pool.QueryRow(ctx, getUserByEmailSQL, email).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
	); scanErr != nil {
		return User{}, notFound(scanErr, "user", email)
	}
	return u, nil
}
