package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	auth "github.com/trendora/go-auth"
	"github.com/uptrace/bun"
)

// memStore is a shared in-memory backing store for the fake repositories,
// seeded with the two canonical roles.
type memStore struct {
	mu          sync.Mutex
	users       map[int64]*auth.User
	tokens      map[int64]*auth.Token
	roles       map[int64]*auth.Role
	nextUserID  int64
	nextTokenID int64
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[int64]*auth.User{},
		tokens: map[int64]*auth.Token{},
		roles: map[int64]*auth.Role{
			1: {ID: 1, Name: "ADMIN"},
			2: {ID: 2, Name: "USER"},
		},
	}
}

type memRepo struct {
	store *memStore
}

func newMemRepo() *memRepo {
	return &memRepo{store: newMemStore()}
}

func (m *memRepo) Validate() error { return nil }
func (m *memRepo) MustValidate()   {}

func (m *memRepo) RunInTx(ctx context.Context, _ *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *memRepo) Users() auth.Users   { return &memUsers{store: m.store} }
func (m *memRepo) Tokens() auth.Tokens { return &memTokens{store: m.store} }
func (m *memRepo) Roles() auth.Roles   { return &memRoles{store: m.store} }

type memUsers struct {
	store *memStore
}

func (r *memUsers) attachRole(u *auth.User) *auth.User {
	if u.Role == nil {
		u.Role = r.store.roles[u.RoleID]
	}
	return u
}

func (r *memUsers) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return r.attachRole(u), nil
}

func (r *memUsers) GetByIDTx(ctx context.Context, _ bun.IDB, id int64) (*auth.User, error) {
	return r.GetByID(ctx, id)
}

func (r *memUsers) findOne(match func(*auth.User) bool, mostRecent bool) (*auth.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var found *auth.User
	for _, u := range r.store.users {
		if !match(u) {
			continue
		}
		if found == nil {
			found = u
			continue
		}
		if mostRecent && u.ID > found.ID {
			found = u
		} else if !mostRecent && u.ID < found.ID {
			found = u
		}
	}

	if found == nil {
		return nil, sql.ErrNoRows
	}
	return r.attachRole(found), nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(func(u *auth.User) bool { return u.Email == email }, false)
}

func (r *memUsers) GetByPhoneNumber(ctx context.Context, phone string) (*auth.User, error) {
	return r.findOne(func(u *auth.User) bool { return u.PhoneNumber == phone }, false)
}

func (r *memUsers) GetByPhoneNumberTx(ctx context.Context, _ bun.IDB, phone string) (*auth.User, error) {
	return r.GetByPhoneNumber(ctx, phone)
}

func (r *memUsers) GetByProviderID(ctx context.Context, provider auth.SocialProvider, providerID string) (*auth.User, error) {
	return r.findOne(func(u *auth.User) bool {
		switch provider {
		case auth.ProviderGoogle:
			return u.GoogleAccountID == providerID
		case auth.ProviderFacebook:
			return u.FacebookAccountID == providerID
		}
		return false
	}, true)
}

func (r *memUsers) GetByProviderIDTx(ctx context.Context, _ bun.IDB, provider auth.SocialProvider, providerID string) (*auth.User, error) {
	return r.GetByProviderID(ctx, provider, providerID)
}

func (r *memUsers) GetMostRecentByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(func(u *auth.User) bool { return u.Email == email }, true)
}

func (r *memUsers) GetMostRecentByEmailTx(ctx context.Context, _ bun.IDB, email string) (*auth.User, error) {
	return r.GetMostRecentByEmail(ctx, email)
}

func (r *memUsers) GetMostRecentByPhoneNumber(ctx context.Context, phone string) (*auth.User, error) {
	return r.findOne(func(u *auth.User) bool { return u.PhoneNumber == phone }, true)
}

func (r *memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, nil
	}
	_, err := r.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func (r *memUsers) ExistsByPhoneNumber(ctx context.Context, phone string) (bool, error) {
	if strings.TrimSpace(phone) == "" {
		return false, nil
	}
	_, err := r.GetByPhoneNumber(ctx, phone)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func (r *memUsers) Create(ctx context.Context, record *auth.User) (*auth.User, error) {
	return r.CreateTx(ctx, nil, record)
}

func (r *memUsers) CreateTx(_ context.Context, _ bun.IDB, record *auth.User) (*auth.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.users {
		if u.Email != "" && u.Email == record.Email {
			return nil, fmt.Errorf("UNIQUE constraint failed: users.email")
		}
		if u.PhoneNumber != "" && u.PhoneNumber == record.PhoneNumber {
			return nil, fmt.Errorf("UNIQUE constraint failed: users.phone_number")
		}
	}

	r.store.nextUserID++
	record.ID = r.store.nextUserID
	now := time.Now()
	record.CreatedAt = &now
	r.store.users[record.ID] = record
	return r.attachRole(record), nil
}

func (r *memUsers) Update(ctx context.Context, record *auth.User) (*auth.User, error) {
	return r.UpdateTx(ctx, nil, record)
}

func (r *memUsers) UpdateTx(_ context.Context, _ bun.IDB, record *auth.User) (*auth.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users[record.ID]; !ok {
		return nil, sql.ErrNoRows
	}
	now := time.Now()
	record.UpdatedAt = &now
	r.store.users[record.ID] = record
	return r.attachRole(record), nil
}

func (r *memUsers) Search(_ context.Context, keyword string, page, perPage int) ([]*auth.User, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	keyword = strings.TrimSpace(keyword)

	var matches []*auth.User
	for _, u := range r.store.users {
		role := r.store.roles[u.RoleID]
		if !u.Active || role == nil || auth.NormalizeRole(role.Name) != auth.RoleUser {
			continue
		}
		if keyword != "" &&
			!strings.Contains(u.FullName, keyword) &&
			!strings.Contains(u.Address, keyword) &&
			!strings.Contains(u.PhoneNumber, keyword) {
			continue
		}
		matches = append(matches, u)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })

	total := len(matches)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return matches[start:end], total, nil
}

type memTokens struct {
	store *memStore
}

func (r *memTokens) attachUser(t *auth.Token) *auth.Token {
	if t.User == nil {
		t.User = r.store.users[t.UserID]
	}
	return t
}

func (r *memTokens) findOne(match func(*auth.Token) bool) (*auth.Token, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, t := range r.store.tokens {
		if match(t) {
			return r.attachUser(t), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memTokens) GetByToken(_ context.Context, token string) (*auth.Token, error) {
	return r.findOne(func(t *auth.Token) bool { return t.Token == token })
}

func (r *memTokens) GetByTokenAndType(_ context.Context, token string, tokenType auth.TokenType) (*auth.Token, error) {
	return r.findOne(func(t *auth.Token) bool { return t.Token == token && t.TokenType == tokenType })
}

func (r *memTokens) GetByTokenAndTypeTx(ctx context.Context, _ bun.IDB, token string, tokenType auth.TokenType) (*auth.Token, error) {
	return r.GetByTokenAndType(ctx, token, tokenType)
}

func (r *memTokens) GetByRefreshToken(_ context.Context, refreshToken string) (*auth.Token, error) {
	return r.findOne(func(t *auth.Token) bool {
		return t.RefreshToken != "" && t.RefreshToken == refreshToken
	})
}

func (r *memTokens) ListByUser(_ context.Context, userID int64) ([]*auth.Token, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*auth.Token
	for _, t := range r.store.tokens {
		if t.UserID == userID {
			out = append(out, r.attachUser(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memTokens) Create(ctx context.Context, record *auth.Token) (*auth.Token, error) {
	return r.CreateTx(ctx, nil, record)
}

func (r *memTokens) CreateTx(_ context.Context, _ bun.IDB, record *auth.Token) (*auth.Token, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.nextTokenID++
	record.ID = r.store.nextTokenID
	now := time.Now()
	record.CreatedAt = &now
	r.store.tokens[record.ID] = record
	return record, nil
}

func (r *memTokens) Update(ctx context.Context, record *auth.Token) (*auth.Token, error) {
	return r.UpdateTx(ctx, nil, record)
}

func (r *memTokens) UpdateTx(_ context.Context, _ bun.IDB, record *auth.Token) (*auth.Token, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.tokens[record.ID]; !ok {
		return nil, sql.ErrNoRows
	}
	r.store.tokens[record.ID] = record
	return record, nil
}

func (r *memTokens) Delete(ctx context.Context, record *auth.Token) error {
	return r.DeleteTx(ctx, nil, record)
}

func (r *memTokens) DeleteTx(_ context.Context, _ bun.IDB, record *auth.Token) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.tokens, record.ID)
	return nil
}

func (r *memTokens) DeleteByUser(ctx context.Context, userID int64) error {
	return r.DeleteByUserTx(ctx, nil, userID)
}

func (r *memTokens) DeleteByUserTx(_ context.Context, _ bun.IDB, userID int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, t := range r.store.tokens {
		if t.UserID == userID {
			delete(r.store.tokens, id)
		}
	}
	return nil
}

type memRoles struct {
	store *memStore
}

func (r *memRoles) GetByID(_ context.Context, id int64) (*auth.Role, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	role, ok := r.store.roles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return role, nil
}

func (r *memRoles) GetByName(_ context.Context, name string) (*auth.Role, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, role := range r.store.roles {
		if strings.EqualFold(role.Name, name) {
			return role, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memRoles) GetByNameTx(ctx context.Context, _ bun.IDB, name string) (*auth.Role, error) {
	return r.GetByName(ctx, name)
}

type sentMail struct {
	To    string
	Token string
}

// memMailer records sends instead of talking to SMTP.
type memMailer struct {
	mu            sync.Mutex
	verifications []sentMail
	resets        []sentMail
	fail          bool
}

func (m *memMailer) SendVerification(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.verifications = append(m.verifications, sentMail{To: to, Token: token})
	return nil
}

func (m *memMailer) SendPasswordReset(_ context.Context, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.resets = append(m.resets, sentMail{To: to, Token: token})
	return nil
}

// testConfig satisfies auth.Config with fixed values.
type testConfig struct {
	signingKey string
}

func (c testConfig) GetSigningKey() string                    { return c.signingKey }
func (c testConfig) GetTokenExpiration() time.Duration        { return time.Hour }
func (c testConfig) GetRefreshTokenExpiration() time.Duration { return 24 * time.Hour }
func (c testConfig) GetTokenLookup() string                   { return "header:Authorization" }
func (c testConfig) GetAuthScheme() string                    { return "Bearer" }
func (c testConfig) GetContextKey() string                    { return "user" }
func (c testConfig) GetFrontendURL() string                   { return "http://localhost:4200" }
func (c testConfig) GetPhoneRegion() string                   { return "US" }
