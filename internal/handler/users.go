package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/merchkpi/dashboard/backend/internal/domain"
	"github.com/merchkpi/dashboard/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// writeUserError maps store errors of user writes to responses.
func (h *Handler) writeUserError(w http.ResponseWriter, r *http.Request, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		switch pgErr.ConstraintName {
		case "users_email_key":
			h.conflict(w, r, "email already in use")
		case "users_role_id_fkey":
			h.badRequest(w, r, errors.New("role does not exist"))
		default:
			h.internalServerError(w, r, err)
		}
	case errors.Is(err, sql.ErrNoRows):
		h.conflict(w, r, "the account changed meanwhile, please retry")
	default:
		h.internalServerError(w, r, err)
	}
}

func (h *Handler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.repository.GetAllUsers()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "users loaded", users)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name" validate:"required,max=100"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"omitempty,min=6"`
		RoleID   int64  `json:"roleId" validate:"required,gt=0"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	isExists, err := h.repository.CheckEmailIfExists(email)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if isExists {
		h.conflict(w, r, "email already in use")
		return
	}

	password := req.Password
	if password == "" {
		password, err = utils.GenerateRandomPassword(h.config.NewUser.PasswordLength)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user := &domain.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hashedPassword),
		RoleID:       req.RoleID,
	}

	if err := h.repository.CreateUser(user); err != nil {
		h.writeUserError(w, r, err)
		return
	}

	if err := h.publishMail(domain.MailMessage{
		Type: domain.MailTypeCreateUser,
		To:   user.Email,
		Data: domain.CreateUserMailData{
			Name:     user.Name,
			Email:    user.Email,
			Password: password,
			Role:     user.Role,
		},
	}); err != nil {
		// the account exists already; the admin can hand out the password manually
		slog.Error("could not queue welcome email", "email", user.Email, "error", err)
		h.successResponse(w, r, "user created, welcome email could not be queued", user)
		return
	}

	h.successResponse(w, r, "user created", user)
}

func (h *Handler) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)
	h.successResponse(w, r, "user loaded", user)
}

// UpdateUser lets a user edit their own name, email and password. Admins may
// edit anyone and additionally change role and active status.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
		Email    *string `json:"email" validate:"omitempty,email"`
		Password *string `json:"password" validate:"omitempty,min=6"`
		RoleID   *int64  `json:"roleId" validate:"omitempty,gt=0"`
		IsActive *bool   `json:"isActive"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	user := r.Context().Value(UserInfoCtx).(*domain.User)

	if !myInfo.Role.IsAdmin() && (req.RoleID != nil || req.IsActive != nil) {
		h.forbidden(w, r, "you cannot modify role or active status")
		return
	}

	if h.isInitialAdmin(user) {
		if (req.RoleID != nil && *req.RoleID != user.RoleID) || (req.IsActive != nil && !*req.IsActive) {
			h.forbidden(w, r, "the initial administrator cannot be demoted or deactivated")
			return
		}
		if req.Email != nil && !strings.EqualFold(*req.Email, user.Email) {
			h.forbidden(w, r, "the initial administrator email is managed by configuration")
			return
		}
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Password != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		user.PasswordHash = string(hashedPassword)
	}
	if req.RoleID != nil {
		user.RoleID = *req.RoleID
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := h.repository.UpdateUser(user); err != nil {
		h.writeUserError(w, r, err)
		return
	}

	h.successResponse(w, r, "user updated", user)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserInfoCtx).(*domain.User)

	if err := h.repository.DeleteUser(user.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "user deleted", nil)
}
