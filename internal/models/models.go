package models

import "time"

// User represents an account on the platform. A user doubles as a channel
// that other users can subscribe to.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	Password  string `json:"-"`
	// RefreshToken holds the currently valid refresh token for the account.
	// A nil value means the user has no active session and every refresh
	// attempt is rejected regardless of token expiry.
	RefreshToken *string   `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile returns a copy of the user with credential material removed.
func (u User) Profile() User {
	u.Password = ""
	u.RefreshToken = nil
	return u
}

// Video is an uploaded clip owned by a user.
type Video struct {
	ID          string `json:"id"`
	OwnerID     string `json:"ownerId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AssetURL    string `json:"assetUrl,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	// Duration is the clip length in seconds as reported by the probe.
	Duration    float64   `json:"duration"`
	AssetStatus string    `json:"assetStatus"`
	CreatedAt   time.Time `json:"createdAt"`
}

const (
	AssetStatusPending = "pending"
	AssetStatusReady   = "ready"
	AssetStatusFailed  = "failed"
)

// Comment is a user-authored message attached to a video.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subscription is a directed edge from a subscriber to a channel. Its
// existence is the subscribed state; there is nothing to update in place.
type Subscription struct {
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ReactionSummary describes the reaction state of a content item after a
// toggle, from the acting user's point of view.
type ReactionSummary struct {
	ItemID   string `json:"itemId"`
	Likes    int64  `json:"likes"`
	Dislikes int64  `json:"dislikes"`
	Liked    bool   `json:"liked"`
	Disliked bool   `json:"disliked"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
