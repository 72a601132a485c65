package domain

type BasicInfoUpdate struct {
	Name            *string `json:"name,omitempty"`
	Description     *string `json:"description,omitempty"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
}

type SocialLinksUpdate struct {
	YouTubeURL   *string `json:"youtube_url,omitempty"`
	TwitchURL    *string `json:"twitch_url,omitempty"`
	TikTokURL    *string `json:"tiktok_url,omitempty"`
	InstagramURL *string `json:"instagram_url,omitempty"`
	XURL         *string `json:"x_url,omitempty"`
	DiscordURL   *string `json:"discord_url,omitempty"`
	NiconicoURL  *string `json:"niconico_url,omitempty"`
}

// RevertPlan is the set of field writes needed to restore a creator to its
// pre-edit state. Every value present must equal the source diff's "before"
// value. Tags is a full replacement set and only applies when ReplaceTags
// is set.
type RevertPlan struct {
	CreatorID     string             `json:"creator_id"`
	EditHistoryID string             `json:"edit_history_id"`
	Reason        string             `json:"reason"`
	BasicInfo     *BasicInfoUpdate   `json:"basic_info,omitempty"`
	SocialLinks   *SocialLinksUpdate `json:"social_links,omitempty"`
	Tags          []string           `json:"tags,omitempty"`
	ReplaceTags   bool               `json:"replace_tags,omitempty"`
}

// RevertResult never carries a Go error past the gateway boundary; failures
// are reduced to a message so callers can keep the pipeline alive.
type RevertResult struct {
	IsSuccess bool   `json:"is_success"`
	Error     string `json:"error,omitempty"`
}
