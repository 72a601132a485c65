package domain

import (
	"errors"
	"time"
)

// Creator errors
var (
	ErrCreatorNotFound     = errors.New("creator not found")
	ErrEditHistoryNotFound = errors.New("edit history not found")
)

type Creator struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	ProfileImageURL string    `json:"profile_image_url"`
	YouTubeURL      string    `json:"youtube_url"`
	TwitchURL       string    `json:"twitch_url"`
	TikTokURL       string    `json:"tiktok_url"`
	InstagramURL    string    `json:"instagram_url"`
	XURL            string    `json:"x_url"`
	DiscordURL      string    `json:"discord_url"`
	NiconicoURL     string    `json:"niconico_url"`
	Tags            []string  `json:"tags"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
