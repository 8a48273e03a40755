package reactions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliptube/backend/internal/models"
)

var testPool *pgxpool.Pool

// The engine runs directly on the pool in production wiring.
var _ TxBeginner = (*pgxpool.Pool)(nil)

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestEngineVideoReactionRoundTrip(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	actor := createUser(t, "viewer")
	owner := createUser(t, "creator")
	video := createVideo(t, owner.ID)

	engine := NewEngine(testPool)

	summary, err := engine.ToggleReaction(ctx, actor.ID, KindVideo, video.ID, PolarityLike)
	if err != nil {
		t.Fatalf("first like: %v", err)
	}
	if !summary.Liked || summary.Likes != 1 || summary.Dislikes != 0 {
		t.Fatalf("unexpected summary after like: %+v", summary)
	}
	assertMembership(t, "video_reactions", "video_id", video.ID, actor.ID)
	assertLikedVideo(t, actor.ID, video.ID, true)

	summary, err = engine.ToggleReaction(ctx, actor.ID, KindVideo, video.ID, PolarityLike)
	if err != nil {
		t.Fatalf("second like: %v", err)
	}
	if summary.Liked || summary.Disliked || summary.Likes != 0 || summary.Dislikes != 0 {
		t.Fatalf("double toggle should return to neutral, got %+v", summary)
	}
	assertMembership(t, "video_reactions", "video_id", video.ID)
	assertLikedVideo(t, actor.ID, video.ID, false)
}

func TestEngineConcurrentTogglesSerialize(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	actor := createUser(t, "viewer")
	owner := createUser(t, "creator")
	video := createVideo(t, owner.ID)

	engine := NewEngine(testPool)

	// Two simultaneous likes from the same actor must serialize: one adds the
	// reaction, the other observes it and removes it. Neither may see a stale
	// classification and double-insert.
	errs := make(chan error, 2)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < 2; i++ {
		go func() {
			start.Wait()
			_, err := engine.ToggleReaction(ctx, actor.ID, KindVideo, video.ID, PolarityLike)
			errs <- err
		}()
	}
	start.Done()

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("concurrent toggle: %v", err)
		}
	}

	var likes, dislikes int
	err := testPool.QueryRow(ctx, `
        SELECT
            count(*) FILTER (WHERE polarity = 'like'),
            count(*) FILTER (WHERE polarity = 'dislike')
        FROM video_reactions WHERE video_id = $1 AND user_id = $2
    `, video.ID, actor.ID).Scan(&likes, &dislikes)
	if err != nil {
		t.Fatalf("count reactions: %v", err)
	}
	if likes > 0 && dislikes > 0 {
		t.Fatalf("actor holds both polarities: likes=%d dislikes=%d", likes, dislikes)
	}
	if likes+dislikes != 0 {
		t.Fatalf("expected an even toggle count to return to neutral, got likes=%d dislikes=%d", likes, dislikes)
	}
	assertLikedVideo(t, actor.ID, video.ID, false)
}

func TestEngineSwitchIsAtomic(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	actor := createUser(t, "viewer")
	owner := createUser(t, "creator")
	video := createVideo(t, owner.ID)

	engine := NewEngine(testPool)

	if _, err := engine.ToggleReaction(ctx, actor.ID, KindVideo, video.ID, PolarityLike); err != nil {
		t.Fatalf("like: %v", err)
	}

	summary, err := engine.ToggleReaction(ctx, actor.ID, KindVideo, video.ID, PolarityDislike)
	if err != nil {
		t.Fatalf("switch to dislike: %v", err)
	}
	if summary.Liked || !summary.Disliked || summary.Likes != 0 || summary.Dislikes != 1 {
		t.Fatalf("unexpected summary after switch: %+v", summary)
	}
	assertLikedVideo(t, actor.ID, video.ID, false)

	summary, err = engine.ToggleReaction(ctx, actor.ID, KindVideo, video.ID, PolarityLike)
	if err != nil {
		t.Fatalf("switch back to like: %v", err)
	}
	if !summary.Liked || summary.Disliked || summary.Likes != 1 || summary.Dislikes != 0 {
		t.Fatalf("unexpected summary after switch back: %+v", summary)
	}
	assertLikedVideo(t, actor.ID, video.ID, true)

	// The actor must never hold both polarities at once.
	var both int
	err = testPool.QueryRow(ctx, `
        SELECT count(*) FROM video_reactions WHERE video_id = $1 AND user_id = $2
    `, video.ID, actor.ID).Scan(&both)
	if err != nil {
		t.Fatalf("count reactions: %v", err)
	}
	if both != 1 {
		t.Fatalf("expected exactly one reaction row, got %d", both)
	}
}

func TestEngineCommentReactionsSkipLikedVideos(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	actor := createUser(t, "viewer")
	owner := createUser(t, "creator")
	video := createVideo(t, owner.ID)
	comment := createComment(t, video.ID, owner.ID)

	engine := NewEngine(testPool)

	summary, err := engine.ToggleReaction(ctx, actor.ID, KindComment, comment.ID, PolarityLike)
	if err != nil {
		t.Fatalf("like comment: %v", err)
	}
	if !summary.Liked || summary.Likes != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	// Comment likes never feed the liked-videos back-reference.
	assertLikedVideo(t, actor.ID, video.ID, false)
}

func TestEngineReactionUnknownTarget(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	actor := createUser(t, "viewer")
	engine := NewEngine(testPool)

	if _, err := engine.ToggleReaction(ctx, actor.ID, KindVideo, uuid.NewString(), PolarityLike); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := engine.ToggleReaction(ctx, actor.ID, KindComment, uuid.NewString(), PolarityDislike); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for comment, got %v", err)
	}
}

func TestEngineReactionInvalidPolarity(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	actor := createUser(t, "viewer")
	owner := createUser(t, "creator")
	video := createVideo(t, owner.ID)

	engine := NewEngine(testPool)

	if _, err := engine.ToggleReaction(ctx, actor.ID, KindVideo, video.ID, Polarity("love")); !errors.Is(err, ErrInvalidPolarity) {
		t.Fatalf("expected ErrInvalidPolarity, got %v", err)
	}
}

func TestEngineInconsistentStateSurfaces(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	actor := createUser(t, "viewer")
	owner := createUser(t, "creator")
	video := createVideo(t, owner.ID)

	// Seed the broken both-polarities state directly.
	for _, polarity := range []string{"like", "dislike"} {
		if _, err := testPool.Exec(ctx, `
            INSERT INTO video_reactions (video_id, user_id, polarity, created_at)
            VALUES ($1, $2, $3, now())
        `, video.ID, actor.ID, polarity); err != nil {
			t.Fatalf("seed reaction: %v", err)
		}
	}

	engine := NewEngine(testPool)

	if _, err := engine.ToggleReaction(ctx, actor.ID, KindVideo, video.ID, PolarityLike); !errors.Is(err, ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState, got %v", err)
	}
}

func TestEngineSubscriptionToggle(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	subscriber := createUser(t, "fan")
	channel := createUser(t, "channel")

	engine := NewEngine(testPool)

	subscribed, err := engine.ToggleSubscription(ctx, subscriber.ID, channel.ID)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !subscribed {
		t.Fatal("expected first toggle to subscribe")
	}

	subscribed, err = engine.ToggleSubscription(ctx, subscriber.ID, channel.ID)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if subscribed {
		t.Fatal("expected second toggle to unsubscribe")
	}

	var count int
	if err := testPool.QueryRow(ctx, `SELECT count(*) FROM subscriptions`).Scan(&count); err != nil {
		t.Fatalf("count subscriptions: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no edges after round trip, got %d", count)
	}
}

func TestEngineSubscriptionGuards(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	subscriber := createUser(t, "fan")
	engine := NewEngine(testPool)

	if _, err := engine.ToggleSubscription(ctx, subscriber.ID, subscriber.ID); !errors.Is(err, ErrSelfSubscription) {
		t.Fatalf("expected ErrSelfSubscription, got %v", err)
	}

	if _, err := engine.ToggleSubscription(ctx, subscriber.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown channel, got %v", err)
	}

	var count int
	if err := testPool.QueryRow(ctx, `SELECT count(*) FROM subscriptions`).Scan(&count); err != nil {
		t.Fatalf("count subscriptions: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed toggles must not create edges, got %d", count)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	if _, err := testPool.Exec(ctx, "TRUNCATE TABLE subscriptions, liked_videos, comment_reactions, video_reactions, comments, videos, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createUser(t *testing.T, username string) models.User {
	t.Helper()
	user := models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    username + "@example.com",
	}
	_, err := testPool.Exec(context.Background(), `
        INSERT INTO users (id, username, email, first_name, last_name, avatar, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, '', '', '', 'hash', $4, $4)
    `, user.ID, user.Username, user.Email, time.Now().UTC())
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func createVideo(t *testing.T, ownerID string) models.Video {
	t.Helper()
	video := models.Video{ID: uuid.NewString(), OwnerID: ownerID, Title: "clip"}
	_, err := testPool.Exec(context.Background(), `
        INSERT INTO videos (id, owner_id, title, description, asset_url, thumbnail, duration, asset_status, created_at)
        VALUES ($1, $2, $3, '', '', '', 0, 'ready', $4)
    `, video.ID, video.OwnerID, video.Title, time.Now().UTC())
	if err != nil {
		t.Fatalf("create video: %v", err)
	}
	return video
}

func createComment(t *testing.T, videoID, ownerID string) models.Comment {
	t.Helper()
	comment := models.Comment{ID: uuid.NewString(), VideoID: videoID, OwnerID: ownerID, Content: "hello"}
	_, err := testPool.Exec(context.Background(), `
        INSERT INTO comments (id, video_id, owner_id, content, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, time.Now().UTC())
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return comment
}

// assertMembership fails unless exactly the listed users have reaction rows on
// the item.
func assertMembership(t *testing.T, table, itemCol, itemID string, userIDs ...string) {
	t.Helper()
	rows, err := testPool.Query(context.Background(),
		fmt.Sprintf(`SELECT user_id FROM %s WHERE %s = $1`, table, itemCol), itemID)
	if err != nil {
		t.Fatalf("query %s: %v", table, err)
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			t.Fatalf("scan %s: %v", table, err)
		}
		found[userID] = true
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate %s: %v", table, err)
	}

	if len(found) != len(userIDs) {
		t.Fatalf("expected %d reacting users, got %d", len(userIDs), len(found))
	}
	for _, id := range userIDs {
		if !found[id] {
			t.Fatalf("expected user %s to have a reaction row", id)
		}
	}
}

func assertLikedVideo(t *testing.T, userID, videoID string, want bool) {
	t.Helper()
	var count int
	err := testPool.QueryRow(context.Background(), `
        SELECT count(*) FROM liked_videos WHERE user_id = $1 AND video_id = $2
    `, userID, videoID).Scan(&count)
	if err != nil {
		t.Fatalf("count liked videos: %v", err)
	}
	if want && count != 1 {
		t.Fatalf("expected liked-videos entry, got %d rows", count)
	}
	if !want && count != 0 {
		t.Fatalf("expected no liked-videos entry, got %d rows", count)
	}
}
