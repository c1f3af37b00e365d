package auth

import (
	"context"
	"database/sql"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// SocialProvider identifies an external identity provider.
type SocialProvider string

const (
	ProviderGoogle   SocialProvider = "google"
	ProviderFacebook SocialProvider = "facebook"
)

func (p SocialProvider) column() string {
	switch p {
	case ProviderFacebook:
		return "facebook_account_id"
	default:
		return "google_account_id"
	}
}

// IsRecordNotFound reports whether a repository error means "no such row".
func IsRecordNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// Users is the user store consumed by the auth core.
type Users interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByPhoneNumber(ctx context.Context, phone string) (*User, error)
	GetByPhoneNumberTx(ctx context.Context, tx bun.IDB, phone string) (*User, error)
	// GetByProviderID returns the most recent record linked to the provider
	// id; duplicates tie-break on the highest numeric id.
	GetByProviderID(ctx context.Context, provider SocialProvider, providerID string) (*User, error)
	GetByProviderIDTx(ctx context.Context, tx bun.IDB, provider SocialProvider, providerID string) (*User, error)
	// GetMostRecentByEmail mirrors the provider lookup tie-break for the
	// email merge path.
	GetMostRecentByEmail(ctx context.Context, email string) (*User, error)
	GetMostRecentByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetMostRecentByPhoneNumber(ctx context.Context, phone string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error)

	Create(ctx context.Context, record *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	Update(ctx context.Context, record *User) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)

	Search(ctx context.Context, keyword string, page, perPage int) ([]*User, int, error)
}

type users struct {
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository creates the bun-backed user store.
func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db}
}

func (r *users) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

func (r *users) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Relation("Role").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getByColumn(ctx, r.db, "email", email, false)
}

func (r *users) GetByPhoneNumber(ctx context.Context, phone string) (*User, error) {
	return r.GetByPhoneNumberTx(ctx, r.db, phone)
}

func (r *users) GetByPhoneNumberTx(ctx context.Context, tx bun.IDB, phone string) (*User, error) {
	return r.getByColumn(ctx, tx, "phone_number", phone, false)
}

func (r *users) GetByProviderID(ctx context.Context, provider SocialProvider, providerID string) (*User, error) {
	return r.GetByProviderIDTx(ctx, r.db, provider, providerID)
}

func (r *users) GetByProviderIDTx(ctx context.Context, tx bun.IDB, provider SocialProvider, providerID string) (*User, error) {
	return r.getByColumn(ctx, tx, provider.column(), providerID, true)
}

func (r *users) GetMostRecentByEmail(ctx context.Context, email string) (*User, error) {
	return r.GetMostRecentByEmailTx(ctx, r.db, email)
}

func (r *users) GetMostRecentByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return r.getByColumn(ctx, tx, "email", email, true)
}

func (r *users) GetMostRecentByPhoneNumber(ctx context.Context, phone string) (*User, error) {
	return r.getByColumn(ctx, r.db, "phone_number", phone, true)
}

func (r *users) getByColumn(ctx context.Context, tx bun.IDB, column, value string, mostRecent bool) (*User, error) {
	record := &User{}
	q := tx.NewSelect().
		Model(record).
		Relation("Role").
		Where("?TableAlias."+column+" = ?", value)

	if mostRecent {
		q = q.OrderExpr("?TableAlias.id DESC")
	}

	if err := q.Limit(1).Scan(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func (r *users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.existsByColumn(ctx, "email", email)
}

func (r *users) ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error) {
	return r.existsByColumn(ctx, "phone_number", phone)
}

func (r *users) existsByColumn(ctx context.Context, column, value string) (bool, error) {
	if strings.TrimSpace(value) == "" {
		return false, nil
	}
	return r.db.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias."+column+" = ?", value).
		Exists(ctx)
}

func (r *users) Create(ctx context.Context, record *User) (*User, error) {
	return r.CreateTx(ctx, r.db, record)
}

func (r *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *users) Update(ctx context.Context, record *User) (*User, error) {
	return r.UpdateTx(ctx, r.db, record)
}

func (r *users) UpdateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	if _, err := tx.NewUpdate().
		Model(record).
		WherePK().
		Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

// Search returns active customer accounts matching the keyword on full name,
// address or phone number, newest first, along with the total match count.
func (r *users) Search(ctx context.Context, keyword string, page, perPage int) ([]*User, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	var records []*User
	q := r.db.NewSelect().
		Model(&records).
		Relation("Role").
		Where("?TableAlias.is_active = ?", true).
		Where("lower(rol.name) = ?", RoleUser)

	if keyword = strings.TrimSpace(keyword); keyword != "" {
		pattern := "%" + keyword + "%"
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				WhereOr("?TableAlias.full_name LIKE ?", pattern).
				WhereOr("?TableAlias.address LIKE ?", pattern).
				WhereOr("?TableAlias.phone_number LIKE ?", pattern)
		})
	}

	total, err := q.
		OrderExpr("?TableAlias.id DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
