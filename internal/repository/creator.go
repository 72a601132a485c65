package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/MikhailHal/IlluMefy-Guardian/internal/domain"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

type postgresCreatorRepository struct {
	db *sql.DB
}

func NewPostgresCreatorRepository(db *sql.DB) *postgresCreatorRepository {
	return &postgresCreatorRepository{db: db}
}

func (r *postgresCreatorRepository) GetByID(ctx context.Context, id string) (*domain.Creator, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, name, description, profile_image_url,
			youtube_url, twitch_url, tiktok_url, instagram_url,
			x_url, discord_url, niconico_url,
			tags, created_at, updated_at
		FROM creators
		WHERE id = $1
	`

	var creator domain.Creator
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&creator.ID,
		&creator.Name,
		&creator.Description,
		&creator.ProfileImageURL,
		&creator.YouTubeURL,
		&creator.TwitchURL,
		&creator.TikTokURL,
		&creator.InstagramURL,
		&creator.XURL,
		&creator.DiscordURL,
		&creator.NiconicoURL,
		pq.Array(&creator.Tags),
		&creator.CreatedAt,
		&creator.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrCreatorNotFound
		}
		log.WithError(err).WithField("creator_id", id).Error("Failed to get creator by ID")
		return nil, fmt.Errorf("failed to get creator by ID: %w", err)
	}

	return &creator, nil
}

// ApplyRevert writes only the fields present in the plan, plus a
// server-assigned updated_at.
func (r *postgresCreatorRepository) ApplyRevert(ctx context.Context, plan *domain.RevertPlan) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	setParts := []string{}
	args := []interface{}{}
	argPos := 1

	addField := func(column string, value *string) {
		if value != nil {
			setParts = append(setParts, fmt.Sprintf("%s = $%d", column, argPos))
			args = append(args, *value)
			argPos++
		}
	}

	if b := plan.BasicInfo; b != nil {
		addField("name", b.Name)
		addField("description", b.Description)
		addField("profile_image_url", b.ProfileImageURL)
	}

	if s := plan.SocialLinks; s != nil {
		addField("youtube_url", s.YouTubeURL)
		addField("twitch_url", s.TwitchURL)
		addField("tiktok_url", s.TikTokURL)
		addField("instagram_url", s.InstagramURL)
		addField("x_url", s.XURL)
		addField("discord_url", s.DiscordURL)
		addField("niconico_url", s.NiconicoURL)
	}

	if plan.ReplaceTags {
		setParts = append(setParts, fmt.Sprintf("tags = $%d", argPos))
		args = append(args, pq.Array(plan.Tags))
		argPos++
	}

	if len(setParts) == 0 {
		log.WithField("creator_id", plan.CreatorID).Warn("Revert plan contains no fields, skipping write")
		return nil
	}

	setParts = append(setParts, "updated_at = now()")

	query := fmt.Sprintf("UPDATE creators SET %s WHERE id = $%d",
		strings.Join(setParts, ", "), argPos)
	args = append(args, plan.CreatorID)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).WithField("creator_id", plan.CreatorID).Error("Failed to apply revert to creator")
		return fmt.Errorf("failed to apply revert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrCreatorNotFound
	}

	log.WithFields(log.Fields{
		"creator_id":      plan.CreatorID,
		"edit_history_id": plan.EditHistoryID,
		"fields":          len(setParts) - 1,
	}).Info("Creator fields reverted")

	return nil
}
