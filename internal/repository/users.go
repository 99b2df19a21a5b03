package repository

import (
	"github.com/merchkpi/dashboard/backend/internal/domain"
)

const userColumns = `u.id, u.name, u.email, u.password_hash, u.role_id, r.name, u.is_active, u.created_at, u.updated_at, u.version`

func userDst(user *domain.User) []any {
	return []any{&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.RoleID, &user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.Version}
}

func (r *Repository) GetUserByID(id int64) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	user := &domain.User{}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(userDst(user)...); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *Repository) GetUserByEmail(email string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u JOIN roles r ON r.id = u.role_id
		WHERE lower(u.email) = lower($1)
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	user := &domain.User{}
	if err := r.dbpool.QueryRowContext(ctx, query, email).Scan(userDst(user)...); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *Repository) queryUsers(query string, args ...any) ([]*domain.User, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user := &domain.User{}
		if err := rows.Scan(userDst(user)...); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *Repository) GetAllUsers() ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u JOIN roles r ON r.id = u.role_id
		ORDER BY u.created_at DESC, u.id DESC
	`

	return r.queryUsers(query)
}

// GetUsersByRole returns the users holding role in creation order.
func (r *Repository) GetUsersByRole(role domain.Role) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u JOIN roles r ON r.id = u.role_id
		WHERE r.name = $1
		ORDER BY u.id
	`

	return r.queryUsers(query, role)
}

func (r *Repository) CreateUser(user *domain.User) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		INSERT INTO users (name, email, password_hash, role_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_active, created_at, updated_at, version, (SELECT name FROM roles WHERE roles.id = users.role_id)
	`

	args := []any{user.Name, user.Email, user.PasswordHash, user.RoleID}
	dst := []any{&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.Version, &user.Role}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

// UpdateUser writes every mutable field. It returns sql.ErrNoRows when the
// row was changed since user was loaded.
func (r *Repository) UpdateUser(user *domain.User) error {
	query := `
		UPDATE users
		SET
			name = $1,
			email = $2,
			password_hash = $3,
			role_id = $4,
			is_active = $5,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING updated_at, version, (SELECT name FROM roles WHERE roles.id = users.role_id)
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{user.Name, user.Email, user.PasswordHash, user.RoleID, user.IsActive, user.ID, user.Version}
	dst := []any{&user.UpdatedAt, &user.Version, &user.Role}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteUser(id int64) error {
	query := `
		DELETE FROM users WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}

func (r *Repository) CheckEmailIfExists(email string) (bool, error) {
	isExists := false

	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))
	`
	if err := r.dbpool.QueryRowContext(ctx, query, email).Scan(&isExists); err != nil {
		return false, err
	}

	return isExists, nil
}
