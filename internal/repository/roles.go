package repository

import (
	"github.com/merchkpi/dashboard/backend/internal/domain"
)

func (r *Repository) GetAllRoles() ([]*domain.RoleEntity, error) {
	query := `
		SELECT r.id, r.name, r.created_at, COUNT(u.id)
		FROM roles r LEFT JOIN users u ON u.role_id = r.id
		GROUP BY r.id, r.name, r.created_at
		ORDER BY r.id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]*domain.RoleEntity, 0)
	for rows.Next() {
		role := &domain.RoleEntity{}
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UserCount); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return roles, nil
}

func (r *Repository) GetRoleByID(id int64) (*domain.RoleEntity, error) {
	query := `
		SELECT r.name, r.created_at, (SELECT COUNT(*) FROM users u WHERE u.role_id = r.id)
		FROM roles r WHERE r.id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	role := &domain.RoleEntity{ID: id}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&role.Name, &role.CreatedAt, &role.UserCount); err != nil {
		return nil, err
	}

	return role, nil
}

func (r *Repository) CreateRole(role *domain.RoleEntity) error {
	query := `
		INSERT INTO roles (name) VALUES ($1)
		RETURNING id, created_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	return r.dbpool.QueryRowContext(ctx, query, role.Name).Scan(&role.ID, &role.CreatedAt)
}

func (r *Repository) UpdateRole(role *domain.RoleEntity) error {
	query := `
		UPDATE roles SET name = $1 WHERE id = $2
		RETURNING created_at
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	return r.dbpool.QueryRowContext(ctx, query, role.Name, role.ID).Scan(&role.CreatedAt)
}

func (r *Repository) DeleteRole(id int64) error {
	query := `
		DELETE FROM roles WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	return err
}

// EnsureRoles inserts the given roles, skipping the ones already present.
func (r *Repository) EnsureRoles(roles []domain.Role) error {
	query := `
		INSERT INTO roles (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	for _, role := range roles {
		if _, err := r.dbpool.ExecContext(ctx, query, role); err != nil {
			return err
		}
	}

	return nil
}

func (r *Repository) GetRoleIDByName(role domain.Role) (int64, error) {
	query := `
		SELECT id FROM roles WHERE name = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	var id int64
	if err := r.dbpool.QueryRowContext(ctx, query, role).Scan(&id); err != nil {
		return 0, err
	}

	return id, nil
}
