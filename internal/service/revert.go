package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/MikhailHal/IlluMefy-Guardian/internal/domain"

	log "github.com/sirupsen/logrus"
)

const revertNotePrefix = "[Reverted by Guardian Bot]"

type CreatorStore interface {
	GetByID(ctx context.Context, id string) (*domain.Creator, error)
	ApplyRevert(ctx context.Context, plan *domain.RevertPlan) error
}

type EditHistoryMarker interface {
	MarkReverted(ctx context.Context, id, note string) error
}

// RevertService reconstructs the pre-edit state of a creator from an edit
// history record and applies it through the entity store.
type RevertService struct {
	creators  CreatorStore
	histories EditHistoryMarker
}

func NewRevertService(creators CreatorStore, histories EditHistoryMarker) *RevertService {
	return &RevertService{creators: creators, histories: histories}
}

// BuildPlan copies every "before" value of the record's present change
// groups into a plan. Basic info and social links are pure diff replay. The
// tag set needs one fresh read of the live creator: tags may have moved
// since the diff was recorded by causes unrelated to this edit, so the plan
// carries (live tags - added) + removed as a full replacement.
func (s *RevertService) BuildPlan(ctx context.Context, record *domain.CreatorEditHistory, reason string) (*domain.RevertPlan, error) {
	plan := &domain.RevertPlan{
		CreatorID:     record.CreatorID,
		EditHistoryID: record.ID,
		Reason:        reason,
	}

	if b := record.BasicInfoChanges; b != nil {
		plan.BasicInfo = &domain.BasicInfoUpdate{}
		if b.Name != nil {
			plan.BasicInfo.Name = &b.Name.Before
		}
		if b.Description != nil {
			plan.BasicInfo.Description = &b.Description.Before
		}
		if b.ProfileImageURL != nil {
			plan.BasicInfo.ProfileImageURL = &b.ProfileImageURL.Before
		}
	}

	if c := record.SocialLinksChanges; c != nil {
		plan.SocialLinks = &domain.SocialLinksUpdate{}
		pairs := []struct {
			change *domain.FieldChange
			target **string
		}{
			{c.YouTubeURL, &plan.SocialLinks.YouTubeURL},
			{c.TwitchURL, &plan.SocialLinks.TwitchURL},
			{c.TikTokURL, &plan.SocialLinks.TikTokURL},
			{c.InstagramURL, &plan.SocialLinks.InstagramURL},
			{c.XURL, &plan.SocialLinks.XURL},
			{c.DiscordURL, &plan.SocialLinks.DiscordURL},
			{c.NiconicoURL, &plan.SocialLinks.NiconicoURL},
		}
		for _, p := range pairs {
			if p.change != nil {
				*p.target = &p.change.Before
			}
		}
	}

	if t := record.TagsChanges; t != nil {
		creator, err := s.creators.GetByID(ctx, record.CreatorID)
		if err != nil {
			return nil, fmt.Errorf("failed to read current creator tags: %w", err)
		}

		tags := make([]string, 0, len(creator.Tags)+len(t.Removed))
		for _, tag := range creator.Tags {
			if !slices.Contains(t.Added, tag) {
				tags = append(tags, tag)
			}
		}
		for _, tag := range t.Removed {
			if !slices.Contains(tags, tag) {
				tags = append(tags, tag)
			}
		}

		plan.Tags = tags
		plan.ReplaceTags = true
	}

	return plan, nil
}

// Revert builds and executes a plan for the record. It never returns a Go
// error: failures are reduced to the result so the caller's pipeline stays
// alive.
func (s *RevertService) Revert(ctx context.Context, record *domain.CreatorEditHistory, reason string) domain.RevertResult {
	plan, err := s.BuildPlan(ctx, record, reason)
	if err != nil {
		log.WithError(err).WithField("edit_history_id", record.ID).Error("Failed to build revert plan")
		return domain.RevertResult{IsSuccess: false, Error: err.Error()}
	}
	return s.Execute(ctx, plan)
}

// Execute applies the plan, then annotates the source edit history record.
// A failed annotation fails the whole apply: an un-annotated revert would be
// replayable and cause duplicate reverts.
func (s *RevertService) Execute(ctx context.Context, plan *domain.RevertPlan) domain.RevertResult {
	if err := s.creators.ApplyRevert(ctx, plan); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"creator_id":      plan.CreatorID,
			"edit_history_id": plan.EditHistoryID,
		}).Error("Failed to apply revert plan")
		return domain.RevertResult{IsSuccess: false, Error: err.Error()}
	}

	note := fmt.Sprintf("%s %s", revertNotePrefix, plan.Reason)
	if err := s.histories.MarkReverted(ctx, plan.EditHistoryID, note); err != nil {
		log.WithError(err).WithField("edit_history_id", plan.EditHistoryID).Error("Failed to mark edit history as reverted")
		return domain.RevertResult{IsSuccess: false, Error: err.Error()}
	}

	log.WithFields(log.Fields{
		"creator_id":      plan.CreatorID,
		"edit_history_id": plan.EditHistoryID,
	}).Info("Malicious edit reverted")

	return domain.RevertResult{IsSuccess: true}
}
