package repositories

import (
	"context"
	"database/sql"
	"errors"

	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/models/entities"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type KeysRepo struct {
	db *sqlx.DB
}

func NewApiKeysRepo(db *sqlx.DB) *KeysRepo {
	return &KeysRepo{db}
}

// GetStatus returns nil, nil for an unknown key.
func (r *KeysRepo) GetStatus(ctx context.Context, key string) (*entities.ApiKey, error) {
	var keyRes entities.ApiKey

	err := r.db.QueryRowxContext(ctx, constants.GetApiKeyStatus, key).StructScan(&keyRes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &keyRes, nil
}

func (r *KeysRepo) Insert(ctx context.Context, chamberID string) (string, error) {
	var id string
	if err := r.db.QueryRowxContext(ctx, constants.InsertApiKey, uuid.NewString(), chamberID).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}
