package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-api/internal/model"
	"github.com/jwalitptl/notify-api/internal/repository"
	"github.com/jwalitptl/notify-api/pkg/errors"
)

type recipientRepository struct {
	BaseRepository
}

// NewRecipientRepository is the default, table-backed resolution of
// recipient profiles. Profile ownership lives with the user service;
// this is read-only.
func NewRecipientRepository(base BaseRepository) repository.RecipientRepository {
	return &recipientRepository{base}
}

type recipientRow struct {
	UserID     uuid.UUID       `db:"user_id"`
	Name       string          `db:"name"`
	Email      string          `db:"email"`
	Phone      string          `db:"phone"`
	Lang       string          `db:"lang"`
	Attributes json.RawMessage `db:"attributes"`
}

func (r *recipientRepository) Get(ctx context.Context, orgID, userID uuid.UUID) (*model.Recipient, error) {
	query := `
		SELECT user_id, name, email, phone, lang, attributes
		FROM user_profiles
		WHERE organization_id = $1 AND user_id = $2
	`

	var row recipientRow
	if err := r.db.GetContext(ctx, &row, query, orgID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("recipient", err)
		}
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}

	recipient := &model.Recipient{
		UserID: row.UserID,
		Name:   row.Name,
		Email:  row.Email,
		Phone:  row.Phone,
		Lang:   row.Lang,
	}
	if len(row.Attributes) > 0 {
		if err := json.Unmarshal(row.Attributes, &recipient.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode recipient attributes: %w", err)
		}
	}
	return recipient, nil
}
