package auth

import (
	"context"

	"github.com/uptrace/bun"
)

// Tokens is the purpose-scoped token store.
type Tokens interface {
	GetByToken(ctx context.Context, token string) (*Token, error)
	GetByTokenAndType(ctx context.Context, token string, tokenType TokenType) (*Token, error)
	GetByTokenAndTypeTx(ctx context.Context, tx bun.IDB, token string, tokenType TokenType) (*Token, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*Token, error)
	ListByUser(ctx context.Context, userID int64) ([]*Token, error)

	Create(ctx context.Context, record *Token) (*Token, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Token) (*Token, error)
	Update(ctx context.Context, record *Token) (*Token, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *Token) (*Token, error)
	Delete(ctx context.Context, record *Token) error
	DeleteTx(ctx context.Context, tx bun.IDB, record *Token) error
	// DeleteByUser removes every token the user owns, whatever the type.
	DeleteByUser(ctx context.Context, userID int64) error
	DeleteByUserTx(ctx context.Context, tx bun.IDB, userID int64) error
}

type tokens struct {
	db *bun.DB
}

var _ Tokens = (*tokens)(nil)

// NewTokensRepository creates the bun-backed token store.
func NewTokensRepository(db *bun.DB) Tokens {
	return &tokens{db: db}
}

func (r *tokens) GetByToken(ctx context.Context, token string) (*Token, error) {
	record := &Token{}
	err := r.db.NewSelect().
		Model(record).
		Relation("User").
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *tokens) GetByTokenAndType(ctx context.Context, token string, tokenType TokenType) (*Token, error) {
	return r.GetByTokenAndTypeTx(ctx, r.db, token, tokenType)
}

func (r *tokens) GetByTokenAndTypeTx(ctx context.Context, tx bun.IDB, token string, tokenType TokenType) (*Token, error) {
	record := &Token{}
	err := tx.NewSelect().
		Model(record).
		Relation("User").
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.token_type = ?", tokenType).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *tokens) GetByRefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	record := &Token{}
	err := r.db.NewSelect().
		Model(record).
		Relation("User").
		Where("?TableAlias.refresh_token = ?", refreshToken).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *tokens) ListByUser(ctx context.Context, userID int64) ([]*Token, error) {
	var records []*Token
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *tokens) Create(ctx context.Context, record *Token) (*Token, error) {
	return r.CreateTx(ctx, r.db, record)
}

func (r *tokens) CreateTx(ctx context.Context, tx bun.IDB, record *Token) (*Token, error) {
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *tokens) Update(ctx context.Context, record *Token) (*Token, error) {
	return r.UpdateTx(ctx, r.db, record)
}

func (r *tokens) UpdateTx(ctx context.Context, tx bun.IDB, record *Token) (*Token, error) {
	if _, err := tx.NewUpdate().
		Model(record).
		WherePK().
		Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *tokens) Delete(ctx context.Context, record *Token) error {
	return r.DeleteTx(ctx, r.db, record)
}

func (r *tokens) DeleteTx(ctx context.Context, tx bun.IDB, record *Token) error {
	_, err := tx.NewDelete().
		Model(record).
		WherePK().
		Exec(ctx)
	return err
}

func (r *tokens) DeleteByUser(ctx context.Context, userID int64) error {
	return r.DeleteByUserTx(ctx, r.db, userID)
}

func (r *tokens) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID int64) error {
	_, err := tx.NewDelete().
		Model((*Token)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}
