package domain

import "time"

// FieldChange captures one edited field value pair.
type FieldChange struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

type BasicInfoChanges struct {
	Name            *FieldChange `json:"name,omitempty"`
	Description     *FieldChange `json:"description,omitempty"`
	ProfileImageURL *FieldChange `json:"profileImageUrl,omitempty"`
}

type SocialLinksChanges struct {
	YouTubeURL   *FieldChange `json:"youtubeUrl,omitempty"`
	TwitchURL    *FieldChange `json:"twitchUrl,omitempty"`
	TikTokURL    *FieldChange `json:"tiktokUrl,omitempty"`
	InstagramURL *FieldChange `json:"instagramUrl,omitempty"`
	XURL         *FieldChange `json:"xUrl,omitempty"`
	DiscordURL   *FieldChange `json:"discordUrl,omitempty"`
	NiconicoURL  *FieldChange `json:"niconicoUrl,omitempty"`
}

type TagsChanges struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// CreatorEditHistory is one stored edit to a creator: before/after values
// per changed field. Written by the editing flow; the guardian only ever
// appends to ModeratorNote when a revert is executed.
type CreatorEditHistory struct {
	ID          string `json:"id"`
	CreatorID   string `json:"creator_id"`
	CreatorName string `json:"creator_name"`

	BasicInfoChanges   *BasicInfoChanges   `json:"basic_info_changes,omitempty"`
	SocialLinksChanges *SocialLinksChanges `json:"social_links_changes,omitempty"`
	TagsChanges        *TagsChanges        `json:"tags_changes,omitempty"`

	UserID          string `json:"user_id"`
	UserPhoneNumber string `json:"user_phone_number"`

	Timestamp     time.Time `json:"timestamp"`
	EditReason    string    `json:"edit_reason,omitempty"`
	ModeratorNote string    `json:"moderator_note,omitempty"`
}

// HasChanges reports whether the record carries at least one change group.
// A record without any is a no-op and is treated as clean.
func (h *CreatorEditHistory) HasChanges() bool {
	return h.BasicInfoChanges != nil || h.SocialLinksChanges != nil || h.TagsChanges != nil
}

// ChangedField is one before/after pair flattened out for rendering.
type ChangedField struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// ChangedFields flattens all present field-level changes in a stable order:
// basic info first, then social links.
func (h *CreatorEditHistory) ChangedFields() []ChangedField {
	var fields []ChangedField

	appendChange := func(name string, c *FieldChange) {
		if c != nil {
			fields = append(fields, ChangedField{Field: name, Before: c.Before, After: c.After})
		}
	}

	if b := h.BasicInfoChanges; b != nil {
		appendChange("name", b.Name)
		appendChange("description", b.Description)
		appendChange("profileImageUrl", b.ProfileImageURL)
	}

	if s := h.SocialLinksChanges; s != nil {
		appendChange("youtubeUrl", s.YouTubeURL)
		appendChange("twitchUrl", s.TwitchURL)
		appendChange("tiktokUrl", s.TikTokURL)
		appendChange("instagramUrl", s.InstagramURL)
		appendChange("xUrl", s.XURL)
		appendChange("discordUrl", s.DiscordURL)
		appendChange("niconicoUrl", s.NiconicoURL)
	}

	return fields
}
