package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// queryTimeout bounds every store call so outages surface as ErrUnavailable
// instead of hung requests.
const queryTimeout = 5 * time.Second

func boundCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, username, email, first_name, last_name, avatar, password_hash, refresh_token, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName,
		&user.Avatar, &user.Password, &user.RefreshToken, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, first_name, last_name, avatar, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FirstName, user.LastName, user.Avatar, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return wrapStoreErr("insert user", err)
	}

	return nil
}

// FindByID fetches a user by primary key.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        SELECT `+userColumns+` FROM users WHERE id = $1
    `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, wrapStoreErr("select user by id", err)
	}

	return user, nil
}

// FindByIdentifier fetches a user by username or email address.
func (r *PostgresUserRepository) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	user, err := scanUser(conn.QueryRow(ctx, `
        SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1
    `, identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, wrapStoreErr("select user by identifier", err)
	}

	return user, nil
}

// SetRefreshToken pins the currently valid refresh token to the user. A nil
// token clears it, revoking all outstanding refresh tokens.
func (r *PostgresUserRepository) SetRefreshToken(ctx context.Context, userID string, token *string) error {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users SET refresh_token = $2, updated_at = now() WHERE id = $1
    `, userID, token)
	if err != nil {
		return wrapStoreErr("update refresh token", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListLikedVideos returns the videos in the user's liked-videos back-reference
// set, newest like first.
func (r *PostgresUserRepository) ListLikedVideos(ctx context.Context, userID string) ([]models.Video, error) {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT v.id, v.owner_id, v.title, v.description, v.asset_url, v.thumbnail, v.duration, v.asset_status, v.created_at
        FROM liked_videos lv
        JOIN videos v ON v.id = lv.video_id
        WHERE lv.user_id = $1
        ORDER BY lv.created_at DESC
    `, userID)
	if err != nil {
		return nil, wrapStoreErr("query liked videos", err)
	}
	defer rows.Close()

	videos, err := collectVideos(rows)
	if err != nil {
		return nil, wrapStoreErr("collect liked videos", err)
	}
	return videos, nil
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

const videoColumns = `id, owner_id, title, description, asset_url, thumbnail, duration, asset_status, created_at`

func collectVideos(rows pgx.Rows) ([]models.Video, error) {
	var videos []models.Video
	for rows.Next() {
		var video models.Video
		if err := rows.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description,
			&video.AssetURL, &video.Thumbnail, &video.Duration, &video.AssetStatus, &video.CreatedAt); err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	status := video.AssetStatus
	if status == "" {
		status = models.AssetStatusPending
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, asset_url, thumbnail, duration, asset_status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.AssetURL, video.Thumbnail, video.Duration, status, video.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return wrapStoreErr("insert video", err)
	}

	return nil
}

// FindByID fetches a video by primary key.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	var video models.Video
	err = conn.QueryRow(ctx, `
        SELECT `+videoColumns+` FROM videos WHERE id = $1
    `, id).Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description,
		&video.AssetURL, &video.Thumbnail, &video.Duration, &video.AssetStatus, &video.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, wrapStoreErr("select video", err)
	}

	return video, nil
}

// ListRecent returns the newest videos first.
func (r *PostgresVideoRepository) ListRecent(ctx context.Context, limit int) ([]models.Video, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+` FROM videos
        ORDER BY created_at DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, wrapStoreErr("query videos", err)
	}
	defer rows.Close()

	videos, err := collectVideos(rows)
	if err != nil {
		return nil, wrapStoreErr("collect videos", err)
	}
	return videos, nil
}

// Delete removes a video along with its reaction rows via FK cascade.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return wrapStoreErr("delete video", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkAssetReady records the uploaded asset location and probed duration.
func (r *PostgresVideoRepository) MarkAssetReady(ctx context.Context, videoID, location string, duration float64) error {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET asset_status = $2, asset_url = $3, duration = $4
        WHERE id = $1
    `, videoID, models.AssetStatusReady, location, duration)
	if err != nil {
		return wrapStoreErr("update video asset ready", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkAssetFailed records a failed upload for the provided video.
func (r *PostgresVideoRepository) MarkAssetFailed(ctx context.Context, videoID string) error {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET asset_status = $2, asset_url = '', duration = 0
        WHERE id = $1
    `, videoID, models.AssetStatusFailed)
	if err != nil {
		return wrapStoreErr("update video asset failed", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresCommentRepository provides PostgreSQL-backed persistence for comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

// Create stores a new comment.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (id, video_id, owner_id, content, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, comment.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return wrapStoreErr("insert comment", err)
	}

	return nil
}

// FindByID fetches a comment by primary key.
func (r *PostgresCommentRepository) FindByID(ctx context.Context, id string) (models.Comment, error) {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	var comment models.Comment
	err = conn.QueryRow(ctx, `
        SELECT id, video_id, owner_id, content, created_at FROM comments WHERE id = $1
    `, id).Scan(&comment.ID, &comment.VideoID, &comment.OwnerID, &comment.Content, &comment.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, wrapStoreErr("select comment", err)
	}

	return comment, nil
}

// ListForVideo returns a video's comments, newest first.
func (r *PostgresCommentRepository) ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error) {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, video_id, owner_id, content, created_at
        FROM comments
        WHERE video_id = $1
        ORDER BY created_at DESC
    `, videoID)
	if err != nil {
		return nil, wrapStoreErr("query comments", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(&comment.ID, &comment.VideoID, &comment.OwnerID, &comment.Content, &comment.CreatedAt); err != nil {
			return nil, wrapStoreErr("scan comment", err)
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("iterate comments", err)
	}

	return comments, nil
}

// Delete removes a comment and its reaction rows via FK cascade.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return wrapStoreErr("delete comment", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresSubscriptionRepository provides read access to subscription edges.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

func collectProfiles(rows pgx.Rows) ([]models.User, error) {
	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Avatar); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// ListSubscribers returns the profiles of users subscribed to the channel.
func (r *PostgresSubscriptionRepository) ListSubscribers(ctx context.Context, channelID string) ([]models.User, error) {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.username, u.first_name, u.last_name, u.avatar
        FROM subscriptions s
        JOIN users u ON u.id = s.subscriber_id
        WHERE s.channel_id = $1
        ORDER BY s.created_at DESC
    `, channelID)
	if err != nil {
		return nil, wrapStoreErr("query subscribers", err)
	}
	defer rows.Close()

	users, err := collectProfiles(rows)
	if err != nil {
		return nil, wrapStoreErr("collect subscribers", err)
	}
	return users, nil
}

// ListChannels returns the profiles of channels the user subscribes to.
func (r *PostgresSubscriptionRepository) ListChannels(ctx context.Context, subscriberID string) ([]models.User, error) {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.username, u.first_name, u.last_name, u.avatar
        FROM subscriptions s
        JOIN users u ON u.id = s.channel_id
        WHERE s.subscriber_id = $1
        ORDER BY s.created_at DESC
    `, subscriberID)
	if err != nil {
		return nil, wrapStoreErr("query subscribed channels", err)
	}
	defer rows.Close()

	users, err := collectProfiles(rows)
	if err != nil {
		return nil, wrapStoreErr("collect subscribed channels", err)
	}
	return users, nil
}

// IsSubscribed reports whether the edge (subscriber, channel) exists.
func (r *PostgresSubscriptionRepository) IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error) {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	var subscribed bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
        )
    `, subscriberID, channelID).Scan(&subscribed)
	if err != nil {
		return false, wrapStoreErr("select subscription existence", err)
	}

	return subscribed, nil
}

// CountSubscribers returns the channel's subscriber count.
func (r *PostgresSubscriptionRepository) CountSubscribers(ctx context.Context, channelID string) (int64, error) {
	ctx, cancel := boundCtx(ctx)
	defer cancel()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, wrapStoreErr("acquire connection", err)
	}
	defer conn.Release()

	var count int64
	err = conn.QueryRow(ctx, `
        SELECT count(*) FROM subscriptions WHERE channel_id = $1
    `, channelID).Scan(&count)
	if err != nil {
		return 0, wrapStoreErr("count subscribers", err)
	}

	return count, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ VideoRepository = (*PostgresVideoRepository)(nil)
var _ CommentRepository = (*PostgresCommentRepository)(nil)
var _ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
