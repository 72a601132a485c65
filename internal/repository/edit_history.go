package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MikhailHal/IlluMefy-Guardian/internal/domain"

	log "github.com/sirupsen/logrus"
)

type postgresEditHistoryRepository struct {
	db *sql.DB
}

func NewPostgresEditHistoryRepository(db *sql.DB) *postgresEditHistoryRepository {
	return &postgresEditHistoryRepository{db: db}
}

const editHistoryColumns = `
	id, creator_id, creator_name,
	basic_info_changes, social_links_changes, tags_changes,
	user_id, user_phone_number,
	occurred_at, edit_reason, moderator_note
`

func scanEditHistory(scanner interface{ Scan(...interface{}) error }) (*domain.CreatorEditHistory, error) {
	var history domain.CreatorEditHistory
	var basicInfo, socialLinks, tags, editReason, moderatorNote sql.NullString

	err := scanner.Scan(
		&history.ID,
		&history.CreatorID,
		&history.CreatorName,
		&basicInfo,
		&socialLinks,
		&tags,
		&history.UserID,
		&history.UserPhoneNumber,
		&history.Timestamp,
		&editReason,
		&moderatorNote,
	)
	if err != nil {
		return nil, err
	}

	if basicInfo.Valid {
		if err := json.Unmarshal([]byte(basicInfo.String), &history.BasicInfoChanges); err != nil {
			return nil, fmt.Errorf("failed to decode basic info changes: %w", err)
		}
	}
	if socialLinks.Valid {
		if err := json.Unmarshal([]byte(socialLinks.String), &history.SocialLinksChanges); err != nil {
			return nil, fmt.Errorf("failed to decode social links changes: %w", err)
		}
	}
	if tags.Valid {
		if err := json.Unmarshal([]byte(tags.String), &history.TagsChanges); err != nil {
			return nil, fmt.Errorf("failed to decode tags changes: %w", err)
		}
	}
	if editReason.Valid {
		history.EditReason = editReason.String
	}
	if moderatorNote.Valid {
		history.ModeratorNote = moderatorNote.String
	}

	return &history, nil
}

func (r *postgresEditHistoryRepository) GetByID(ctx context.Context, id string) (*domain.CreatorEditHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM creator_edit_histories WHERE id = $1`, editHistoryColumns)

	history, err := scanEditHistory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrEditHistoryNotFound
		}
		log.WithError(err).WithField("edit_history_id", id).Error("Failed to get edit history by ID")
		return nil, fmt.Errorf("failed to get edit history by ID: %w", err)
	}

	return history, nil
}

func (r *postgresEditHistoryRepository) List(ctx context.Context, limit, offset int) ([]domain.CreatorEditHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT %s FROM creator_edit_histories
		ORDER BY occurred_at DESC
		LIMIT $1 OFFSET $2
	`, editHistoryColumns)

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		log.WithError(err).Error("Failed to list edit histories")
		return nil, fmt.Errorf("failed to list edit histories: %w", err)
	}
	defer rows.Close()

	histories := []domain.CreatorEditHistory{}
	for rows.Next() {
		history, err := scanEditHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edit history: %w", err)
		}
		histories = append(histories, *history)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate edit histories: %w", err)
	}

	return histories, nil
}

// ListAll returns the full backlog in emission order. Used by the change
// feed to build the initial snapshot.
func (r *postgresEditHistoryRepository) ListAll(ctx context.Context) ([]domain.CreatorEditHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM creator_edit_histories ORDER BY occurred_at ASC`, editHistoryColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list edit history backlog: %w", err)
	}
	defer rows.Close()

	histories := []domain.CreatorEditHistory{}
	for rows.Next() {
		history, err := scanEditHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edit history: %w", err)
		}
		histories = append(histories, *history)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate edit history backlog: %w", err)
	}

	return histories, nil
}

// MarkReverted appends an audit note to the source edit history record so a
// revert is never silently replayable.
func (r *postgresEditHistoryRepository) MarkReverted(ctx context.Context, id, note string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		UPDATE creator_edit_histories
		SET moderator_note = CASE
			WHEN moderator_note IS NULL OR moderator_note = '' THEN $2
			ELSE moderator_note || E'\n' || $2
		END
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, note)
	if err != nil {
		log.WithError(err).WithField("edit_history_id", id).Error("Failed to mark edit history as reverted")
		return fmt.Errorf("failed to mark edit history as reverted: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrEditHistoryNotFound
	}

	log.WithField("edit_history_id", id).Info("Edit history marked as reverted")
	return nil
}
