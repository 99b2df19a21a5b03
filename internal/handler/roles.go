package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/merchkpi/dashboard/backend/internal/domain"
)

func (h *Handler) writeRoleError(w http.ResponseWriter, r *http.Request, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		switch pgErr.ConstraintName {
		case "roles_name_key":
			h.conflict(w, r, "role already exists")
		case "users_role_id_fkey":
			h.conflict(w, r, "role is still assigned to users")
		default:
			h.internalServerError(w, r, err)
		}
	case errors.Is(err, sql.ErrNoRows):
		h.notFound(w, r, "role not found")
	default:
		h.internalServerError(w, r, err)
	}
}

func (h *Handler) readRoleName(w http.ResponseWriter, r *http.Request) (domain.Role, bool) {
	var req struct {
		Name string `json:"name" validate:"required"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return "", false
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return "", false
	}

	role, err := domain.ParseRole(req.Name)
	if err != nil {
		h.badRequest(w, r, errors.New("role must be one of Admin, Merchandiser, Viewer"))
		return "", false
	}

	return role, true
}

func (h *Handler) GetAllRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.repository.GetAllRoles()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "roles loaded", roles)
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	name, ok := h.readRoleName(w, r)
	if !ok {
		return
	}

	role := &domain.RoleEntity{Name: name}
	if err := h.repository.CreateRole(role); err != nil {
		h.writeRoleError(w, r, err)
		return
	}

	h.successResponse(w, r, "role created", role)
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	role := r.Context().Value(RoleInfoCtx).(*domain.RoleEntity)

	name, ok := h.readRoleName(w, r)
	if !ok {
		return
	}

	// every administrator holds the Admin row, renaming it would demote them all
	if role.Name.IsAdmin() && name != role.Name {
		h.forbidden(w, r, "the Admin role cannot be renamed")
		return
	}

	role.Name = name
	if err := h.repository.UpdateRole(role); err != nil {
		h.writeRoleError(w, r, err)
		return
	}

	h.successResponse(w, r, "role updated", role)
}

func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	role := r.Context().Value(RoleInfoCtx).(*domain.RoleEntity)

	if role.Name.IsAdmin() {
		h.forbidden(w, r, "the Admin role cannot be deleted")
		return
	}

	if role.UserCount > 0 {
		h.conflict(w, r, "role is still assigned to users")
		return
	}

	if err := h.repository.DeleteRole(role.ID); err != nil {
		h.writeRoleError(w, r, err)
		return
	}

	h.successResponse(w, r, "role deleted", nil)
}
