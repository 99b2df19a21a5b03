package handler

import (
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/merchkpi/dashboard/backend/internal/domain"
	"github.com/merchkpi/dashboard/backend/internal/kpi"
)

// fakeRepository keeps everything in memory and reports constraint
// violations with the same constraint names as the schema.
type fakeRepository struct {
	mu      sync.Mutex
	nextID  int64
	users   map[int64]*domain.User
	roles   map[int64]*domain.RoleEntity
	records map[string]*domain.DailyRecord
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:   make(map[int64]*domain.User),
		roles:   make(map[int64]*domain.RoleEntity),
		records: make(map[string]*domain.DailyRecord),
	}
}

func (f *fakeRepository) id() int64 {
	f.nextID++
	return f.nextID
}

func recordKey(userID int64, date time.Time) string {
	return fmt.Sprintf("%s/%d", date.Format(time.DateOnly), userID)
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func (f *fakeRepository) roleName(id int64) (domain.Role, bool) {
	role, ok := f.roles[id]
	if !ok {
		return "", false
	}
	return role.Name, true
}

func (f *fakeRepository) GetUserByID(id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cloneUser(u), nil
}

func (f *fakeRepository) GetUserByEmail(email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRepository) sortedUsers(keep func(*domain.User) bool) []*domain.User {
	users := make([]*domain.User, 0, len(f.users))
	for _, u := range f.users {
		if keep(u) {
			users = append(users, cloneUser(u))
		}
	}
	slices.SortFunc(users, func(a, b *domain.User) int { return int(a.ID - b.ID) })
	return users
}

func (f *fakeRepository) GetAllUsers() ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	users := f.sortedUsers(func(*domain.User) bool { return true })
	slices.Reverse(users)
	return users, nil
}

func (f *fakeRepository) GetUsersByRole(role domain.Role) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.sortedUsers(func(u *domain.User) bool { return u.Role == role }), nil
}

func (f *fakeRepository) emailTaken(email string, exceptID int64) bool {
	for _, u := range f.users {
		if u.ID != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (f *fakeRepository) CreateUser(user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.emailTaken(user.Email, 0) {
		return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	}
	role, ok := f.roleName(user.RoleID)
	if !ok {
		return &pgconn.PgError{Code: "23503", ConstraintName: "users_role_id_fkey"}
	}

	user.ID = f.id()
	user.Role = role
	user.IsActive = true
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	user.Version = 1
	f.users[user.ID] = cloneUser(user)
	return nil
}

func (f *fakeRepository) UpdateUser(user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.users[user.ID]
	if !ok || stored.Version != user.Version {
		return sql.ErrNoRows
	}
	if f.emailTaken(user.Email, user.ID) {
		return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	}
	role, ok := f.roleName(user.RoleID)
	if !ok {
		return &pgconn.PgError{Code: "23503", ConstraintName: "users_role_id_fkey"}
	}

	user.Role = role
	user.Version++
	user.UpdatedAt = time.Now()
	f.users[user.ID] = cloneUser(user)
	return nil
}

func (f *fakeRepository) DeleteUser(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.users, id)
	for key, rec := range f.records {
		if rec.UserID == id {
			delete(f.records, key)
		}
	}
	return nil
}

func (f *fakeRepository) CheckEmailIfExists(email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.emailTaken(email, 0), nil
}

func (f *fakeRepository) userCount(roleID int64) int64 {
	var n int64
	for _, u := range f.users {
		if u.RoleID == roleID {
			n++
		}
	}
	return n
}

func (f *fakeRepository) GetAllRoles() ([]*domain.RoleEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	roles := make([]*domain.RoleEntity, 0, len(f.roles))
	for _, role := range f.roles {
		c := *role
		c.UserCount = f.userCount(role.ID)
		roles = append(roles, &c)
	}
	slices.SortFunc(roles, func(a, b *domain.RoleEntity) int { return int(a.ID - b.ID) })
	return roles, nil
}

func (f *fakeRepository) GetRoleByID(id int64) (*domain.RoleEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	role, ok := f.roles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *role
	c.UserCount = f.userCount(id)
	return &c, nil
}

func (f *fakeRepository) roleTaken(name domain.Role, exceptID int64) bool {
	for _, role := range f.roles {
		if role.ID != exceptID && role.Name == name {
			return true
		}
	}
	return false
}

func (f *fakeRepository) CreateRole(role *domain.RoleEntity) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.roleTaken(role.Name, 0) {
		return &pgconn.PgError{Code: "23505", ConstraintName: "roles_name_key"}
	}
	role.ID = f.id()
	role.CreatedAt = time.Now()
	c := *role
	f.roles[role.ID] = &c
	return nil
}

func (f *fakeRepository) UpdateRole(role *domain.RoleEntity) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.roles[role.ID]; !ok {
		return sql.ErrNoRows
	}
	if f.roleTaken(role.Name, role.ID) {
		return &pgconn.PgError{Code: "23505", ConstraintName: "roles_name_key"}
	}
	f.roles[role.ID].Name = role.Name
	for _, u := range f.users {
		if u.RoleID == role.ID {
			u.Role = role.Name
		}
	}
	return nil
}

func (f *fakeRepository) DeleteRole(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.roles[id]; !ok {
		return sql.ErrNoRows
	}
	if f.userCount(id) > 0 {
		return &pgconn.PgError{Code: "23503", ConstraintName: "users_role_id_fkey"}
	}
	delete(f.roles, id)
	return nil
}

func (f *fakeRepository) UpsertDailyRecord(rec *domain.DailyRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec.EquivalentUploads = kpi.Equivalent(rec.Counts)
	now := time.Now()

	key := recordKey(rec.UserID, rec.Date)
	if stored, ok := f.records[key]; ok {
		rec.ID = stored.ID
		rec.CreatedAt = stored.CreatedAt
	} else {
		rec.ID = f.id()
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	c := *rec
	c.User = nil
	f.records[key] = &c
	return nil
}

func (f *fakeRepository) GetDailyRecords(filter domain.RecordFilter) ([]*domain.DailyRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	day := func(t time.Time) string { return t.Format(time.DateOnly) }

	records := make([]*domain.DailyRecord, 0)
	for _, rec := range f.records {
		user := f.users[rec.UserID]
		switch {
		case filter.UserID != 0 && rec.UserID != filter.UserID:
			continue
		case !filter.From.IsZero() && day(rec.Date) < day(filter.From):
			continue
		case !filter.To.IsZero() && day(rec.Date) > day(filter.To):
			continue
		case filter.NameLike != "" && !strings.Contains(strings.ToLower(user.Name), strings.ToLower(filter.NameLike)):
			continue
		}

		c := *rec
		c.User = &domain.UserBrief{ID: user.ID, Name: user.Name, Email: user.Email}
		records = append(records, &c)
	}

	slices.SortFunc(records, func(a, b *domain.DailyRecord) int {
		if c := strings.Compare(day(b.Date), day(a.Date)); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return records, nil
}

func (f *fakeRepository) recordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.records)
}
