package handler

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/merchkpi/dashboard/backend/internal/config"
	"github.com/merchkpi/dashboard/backend/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// Repository is the persistence the handlers need; *repository.Repository
// implements it.
type Repository interface {
	GetUserByID(id int64) (*domain.User, error)
	GetUserByEmail(email string) (*domain.User, error)
	GetAllUsers() ([]*domain.User, error)
	GetUsersByRole(role domain.Role) ([]*domain.User, error)
	CreateUser(user *domain.User) error
	UpdateUser(user *domain.User) error
	DeleteUser(id int64) error
	CheckEmailIfExists(email string) (bool, error)

	GetAllRoles() ([]*domain.RoleEntity, error)
	GetRoleByID(id int64) (*domain.RoleEntity, error)
	CreateRole(role *domain.RoleEntity) error
	UpdateRole(role *domain.RoleEntity) error
	DeleteRole(id int64) error

	UpsertDailyRecord(rec *domain.DailyRecord) error
	GetDailyRecords(filter domain.RecordFilter) ([]*domain.DailyRecord, error)
}

// MailPublisher is satisfied by *amqp.Channel.
type MailPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  Repository
	translator  ut.Translator
	mailChannel MailPublisher
	redisClient *redis.Client
	location    *time.Location
	now         func() time.Time

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo Repository, mailCh MailPublisher, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.KPI.Timezone)
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		mailChannel: mailCh,
		redisClient: rdb,
		location:    loc,
		now:         time.Now,

		Mux: chi.NewRouter(),
	}, nil
}

// today returns the current time in the configured KPI time zone.
func (h *Handler) today() time.Time {
	return h.now().In(h.location)
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// uploaded attachments are linked from records and served as static files
	h.Mux.Get("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.config.Upload.Dir))).ServeHTTP)

	admin := h.RequiredRole([]domain.Role{domain.RoleAdmin})
	merchandiser := h.RequiredRole([]domain.Role{domain.RoleMerchandiser})

	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.myInfo)

		r.Route("/my-info", func(r chi.Router) {
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/roles", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", h.GetAllRoles)
			r.Post("/", h.CreateRole)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.roleInfo)
				r.Patch("/", h.UpdateRole)
				r.Delete("/", h.DeleteRole)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.With(admin).Post("/", h.CreateUser)
			r.With(admin).Get("/", h.GetAllUsers)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Use(h.requireAdminOrSelf)
				r.Get("/", h.GetUserInfo)
				r.Patch("/", h.UpdateUser)
				r.With(admin).With(h.preventOperateInitialAdmin).Delete("/", h.DeleteUser)
			})
		})

		r.Route("/records", func(r chi.Router) {
			r.With(merchandiser).With(h.preventInactiveUser).Post("/", h.SubmitDailyRecord)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin, domain.RoleMerchandiser})).Get("/", h.GetDailyRecords)
			r.With(merchandiser).Get("/stats", h.GetMyStats)
			r.With(admin).Get("/admin", h.GetAllDailyRecords)
		})

		r.With(admin).Get("/admin/overview", h.GetAdminOverview)

		r.Post("/uploads", h.UploadAttachment)
	})
}
