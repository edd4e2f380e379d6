package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type VerificationTokens interface {
	repository.Repository[*VerificationToken]

	GetByValue(ctx context.Context, value string) (*VerificationToken, error)
	GetByValueTx(ctx context.Context, tx bun.IDB, value string) (*VerificationToken, error)
	Consume(ctx context.Context, id uuid.UUID, at time.Time) (*VerificationToken, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) (*VerificationToken, error)
	InvalidateForUser(ctx context.Context, userID uuid.UUID) error
	InvalidateForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type verificationTokens struct {
	repository.Repository[*VerificationToken]
	db *bun.DB
}

var (
	_ VerificationTokens                        = (*verificationTokens)(nil)
	_ repository.Repository[*VerificationToken] = (*verificationTokens)(nil)
)

func NewVerificationTokensRepository(db *bun.DB) VerificationTokens {
	repo := repository.NewRepository[*VerificationToken](db, repository.ModelHandlers[*VerificationToken]{
		NewRecord: func() *VerificationToken { return &VerificationToken{} },
		GetID: func(t *VerificationToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *VerificationToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "value"
		},
	})

	return &verificationTokens{
		Repository: repo,
		db:         db,
	}
}

func (r *verificationTokens) Create(ctx context.Context, record *VerificationToken, criteria ...repository.InsertCriteria) (*VerificationToken, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *verificationTokens) CreateTx(ctx context.Context, tx bun.IDB, record *VerificationToken, criteria ...repository.InsertCriteria) (*VerificationToken, error) {
	prepareTokenDefaults(record)
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (r *verificationTokens) GetByValue(ctx context.Context, value string) (*VerificationToken, error) {
	return r.GetByValueTx(ctx, r.db, value)
}

func (r *verificationTokens) GetByValueTx(ctx context.Context, tx bun.IDB, value string) (*VerificationToken, error) {
	record := &VerificationToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.value = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (r *verificationTokens) Consume(ctx context.Context, id uuid.UUID, at time.Time) (*VerificationToken, error) {
	return r.ConsumeTx(ctx, r.db, id, at)
}

// ConsumeTx marks the token used. The consumed_at guard makes a double
// consume match nothing, which reports not found.
func (r *verificationTokens) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) (*VerificationToken, error) {
	record := MarkConsumed(id, at)

	res, err := tx.NewUpdate().
		Model(record).
		Column("consumed_at").
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.consumed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return record, nil
}

func (r *verificationTokens) InvalidateForUser(ctx context.Context, userID uuid.UUID) error {
	return r.InvalidateForUserTx(ctx, r.db, userID)
}

// InvalidateForUserTx soft deletes every live token for the user so a resend
// leaves exactly one confirmable token.
func (r *verificationTokens) InvalidateForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*VerificationToken)(nil)).
		Set("deleted_at = ?", time.Now()).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.consumed_at IS NULL").
		Where("?TableAlias.deleted_at IS NULL").
		Exec(ctx)

	return err
}

func prepareTokenDefaults(record *VerificationToken) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.IssuedAt == nil {
		now := time.Now()
		record.IssuedAt = &now
	}
}
