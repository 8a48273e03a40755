package handlers

import (
	"context"
	"sort"

	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/reactions"
	"github.com/cliptube/backend/internal/repositories"
)

// memoryUsers satisfies both the handler UserStore and the token manager's
// persistence interface so tests can run against a real session manager.
type memoryUsers struct {
	users map[string]models.User
	likes map[string][]models.Video
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]models.User), likes: make(map[string][]models.Video)}
}

func (s *memoryUsers) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *memoryUsers) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *memoryUsers) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *memoryUsers) SetRefreshToken(_ context.Context, userID string, token *string) error {
	user, ok := s.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.RefreshToken = token
	s.users[userID] = user
	return nil
}

func (s *memoryUsers) ListLikedVideos(_ context.Context, userID string) ([]models.Video, error) {
	return s.likes[userID], nil
}

type memoryVideos struct {
	videos map[string]models.Video
}

func newMemoryVideos() *memoryVideos {
	return &memoryVideos{videos: make(map[string]models.Video)}
}

func (s *memoryVideos) Create(_ context.Context, video models.Video) error {
	if _, exists := s.videos[video.ID]; exists {
		return repositories.ErrConflict
	}
	s.videos[video.ID] = video
	return nil
}

func (s *memoryVideos) FindByID(_ context.Context, id string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *memoryVideos) ListRecent(_ context.Context, limit int) ([]models.Video, error) {
	out := make([]models.Video, 0, len(s.videos))
	for _, video := range s.videos {
		out = append(out, video)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryVideos) Delete(_ context.Context, id string) error {
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

type memoryComments struct {
	comments map[string]models.Comment
}

func newMemoryComments() *memoryComments {
	return &memoryComments{comments: make(map[string]models.Comment)}
}

func (s *memoryComments) Create(_ context.Context, comment models.Comment) error {
	s.comments[comment.ID] = comment
	return nil
}

func (s *memoryComments) FindByID(_ context.Context, id string) (models.Comment, error) {
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *memoryComments) ListForVideo(_ context.Context, videoID string) ([]models.Comment, error) {
	var out []models.Comment
	for _, comment := range s.comments {
		if comment.VideoID == videoID {
			out = append(out, comment)
		}
	}
	return out, nil
}

func (s *memoryComments) Delete(_ context.Context, id string) error {
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

// recordingToggler records toggle calls and returns canned results.
type recordingToggler struct {
	summary     models.ReactionSummary
	summaryErr  error
	subscribed  bool
	subErr      error
	lastActor   string
	lastKind    reactions.Kind
	lastItem    string
	lastPol     reactions.Polarity
	lastChannel string
}

func (t *recordingToggler) ToggleReaction(_ context.Context, actorID string, kind reactions.Kind, itemID string, polarity reactions.Polarity) (models.ReactionSummary, error) {
	t.lastActor = actorID
	t.lastKind = kind
	t.lastItem = itemID
	t.lastPol = polarity
	if t.summaryErr != nil {
		return models.ReactionSummary{}, t.summaryErr
	}
	return t.summary, nil
}

func (t *recordingToggler) ToggleSubscription(_ context.Context, subscriberID, channelID string) (bool, error) {
	t.lastActor = subscriberID
	t.lastChannel = channelID
	if t.subErr != nil {
		return false, t.subErr
	}
	return t.subscribed, nil
}

type memorySubscriptions struct {
	subscribers map[string][]models.User
	channels    map[string][]models.User
}

func newMemorySubscriptions() *memorySubscriptions {
	return &memorySubscriptions{subscribers: make(map[string][]models.User), channels: make(map[string][]models.User)}
}

func (s *memorySubscriptions) ListSubscribers(_ context.Context, channelID string) ([]models.User, error) {
	return s.subscribers[channelID], nil
}

func (s *memorySubscriptions) ListChannels(_ context.Context, subscriberID string) ([]models.User, error) {
	return s.channels[subscriberID], nil
}

func (s *memorySubscriptions) IsSubscribed(_ context.Context, subscriberID, channelID string) (bool, error) {
	for _, user := range s.subscribers[channelID] {
		if user.ID == subscriberID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memorySubscriptions) CountSubscribers(_ context.Context, channelID string) (int64, error) {
	return int64(len(s.subscribers[channelID])), nil
}

type recordingIngestor struct {
	enqueued []models.Video
	paths    []string
	err      error
}

func (i *recordingIngestor) Enqueue(_ context.Context, video models.Video, localPath string) error {
	if i.err != nil {
		return i.err
	}
	i.enqueued = append(i.enqueued, video)
	i.paths = append(i.paths, localPath)
	return nil
}
