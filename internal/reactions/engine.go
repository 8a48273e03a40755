package reactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	crdbpgxv5 "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// Kind identifies the content item type a reaction targets.
type Kind string

const (
	KindVideo   Kind = "video"
	KindComment Kind = "comment"
)

// TxBeginner starts database transactions. crdbpgxv5.ExecuteTx requires both
// methods; *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// txTimeout bounds every toggle so a stalled store surfaces as a transient
// failure instead of a hung request.
const txTimeout = 5 * time.Second

// Engine applies membership toggles between users and content. Every toggle
// classifies the current state and applies the transition inside a single
// serializable transaction, so two racing toggles on the same (actor, target)
// pair serialize instead of clobbering each other's classification.
type Engine struct {
	db TxBeginner
}

// NewEngine constructs the toggle engine on top of the provided transaction
// starter.
func NewEngine(db TxBeginner) *Engine {
	if db == nil {
		panic("reactions: tx beginner must not be nil")
	}
	return &Engine{db: db}
}

type reactionTables struct {
	item      string
	reactions string
	itemCol   string
}

func tablesFor(kind Kind) (reactionTables, error) {
	switch kind {
	case KindVideo:
		return reactionTables{item: "videos", reactions: "video_reactions", itemCol: "video_id"}, nil
	case KindComment:
		return reactionTables{item: "comments", reactions: "comment_reactions", itemCol: "comment_id"}, nil
	default:
		return reactionTables{}, fmt.Errorf("unknown content kind %q", kind)
	}
}

// ToggleReaction applies the like/dislike transition table for the actor on
// the identified item and returns the resulting reaction state. Video like
// transitions additionally maintain the actor's liked-videos back-reference;
// comment reactions intentionally do not.
func (e *Engine) ToggleReaction(ctx context.Context, actorID string, kind Kind, itemID string, requested Polarity) (models.ReactionSummary, error) {
	tables, err := tablesFor(kind)
	if err != nil {
		return models.ReactionSummary{}, err
	}
	if !requested.Valid() {
		return models.ReactionSummary{}, ErrInvalidPolarity
	}

	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	var summary models.ReactionSummary
	err = crdbpgxv5.ExecuteTx(ctx, e.db, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		var exists bool
		query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, tables.item)
		if err := tx.QueryRow(ctx, query, itemID).Scan(&exists); err != nil {
			return fmt.Errorf("check %s existence: %w", kind, err)
		}
		if !exists {
			return ErrNotFound
		}

		liked, disliked, err := e.membership(ctx, tx, tables, itemID, actorID)
		if err != nil {
			return err
		}

		plan, err := planTransition(liked, disliked, requested)
		if err != nil {
			if errors.Is(err, ErrInconsistentState) {
				// Broken invariant somewhere else in the system; make it loud.
				logging.FromContext(ctx).Error("actor present in both reaction sets",
					"kind", string(kind), "itemId", itemID, "actorId", actorID)
			}
			return err
		}

		if err := e.apply(ctx, tx, tables, itemID, actorID, plan); err != nil {
			return err
		}

		if kind == KindVideo {
			if err := e.syncLikedVideos(ctx, tx, itemID, actorID, plan); err != nil {
				return err
			}
		}

		summary, err = e.summarize(ctx, tx, tables, itemID, plan)
		return err
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.ReactionSummary{}, fmt.Errorf("toggle reaction: %w", repositories.ErrUnavailable)
		}
		return models.ReactionSummary{}, err
	}

	return summary, nil
}

// ToggleSubscription flips the subscription edge between subscriber and
// channel. It returns the resulting state: true when the edge now exists.
func (e *Engine) ToggleSubscription(ctx context.Context, subscriberID, channelID string) (bool, error) {
	if subscriberID == channelID {
		return false, ErrSelfSubscription
	}

	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	var subscribed bool
	err := crdbpgxv5.ExecuteTx(ctx, e.db, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, channelID).Scan(&exists); err != nil {
			return fmt.Errorf("check channel existence: %w", err)
		}
		if !exists {
			return ErrNotFound
		}

		tag, err := tx.Exec(ctx, `
            DELETE FROM subscriptions
            WHERE subscriber_id = $1 AND channel_id = $2
        `, subscriberID, channelID)
		if err != nil {
			return fmt.Errorf("delete subscription: %w", err)
		}

		if tag.RowsAffected() > 0 {
			subscribed = false
			return nil
		}

		_, err = tx.Exec(ctx, `
            INSERT INTO subscriptions (subscriber_id, channel_id, created_at)
            VALUES ($1, $2, now())
            ON CONFLICT (subscriber_id, channel_id) DO NOTHING
        `, subscriberID, channelID)
		if err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}

		subscribed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return false, fmt.Errorf("toggle subscription: %w", repositories.ErrUnavailable)
		}
		return false, err
	}

	return subscribed, nil
}

func (e *Engine) membership(ctx context.Context, tx pgx.Tx, tables reactionTables, itemID, actorID string) (liked, disliked bool, err error) {
	query := fmt.Sprintf(`
        SELECT polarity FROM %s
        WHERE %s = $1 AND user_id = $2
    `, tables.reactions, tables.itemCol)

	rows, err := tx.Query(ctx, query, itemID, actorID)
	if err != nil {
		return false, false, fmt.Errorf("query reaction membership: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var polarity string
		if err := rows.Scan(&polarity); err != nil {
			return false, false, fmt.Errorf("scan reaction membership: %w", err)
		}
		switch Polarity(polarity) {
		case PolarityLike:
			liked = true
		case PolarityDislike:
			disliked = true
		}
	}
	if err := rows.Err(); err != nil {
		return false, false, fmt.Errorf("iterate reaction membership: %w", err)
	}

	return liked, disliked, nil
}

func (e *Engine) apply(ctx context.Context, tx pgx.Tx, tables reactionTables, itemID, actorID string, plan transition) error {
	deleteQuery := fmt.Sprintf(`
        DELETE FROM %s
        WHERE %s = $1 AND user_id = $2 AND polarity = $3
    `, tables.reactions, tables.itemCol)

	if plan.removeLike {
		if _, err := tx.Exec(ctx, deleteQuery, itemID, actorID, string(PolarityLike)); err != nil {
			return fmt.Errorf("remove like: %w", err)
		}
	}
	if plan.removeDislike {
		if _, err := tx.Exec(ctx, deleteQuery, itemID, actorID, string(PolarityDislike)); err != nil {
			return fmt.Errorf("remove dislike: %w", err)
		}
	}
	if plan.add != "" {
		insertQuery := fmt.Sprintf(`
            INSERT INTO %s (%s, user_id, polarity, created_at)
            VALUES ($1, $2, $3, now())
            ON CONFLICT (%s, user_id, polarity) DO NOTHING
        `, tables.reactions, tables.itemCol, tables.itemCol)
		if _, err := tx.Exec(ctx, insertQuery, itemID, actorID, string(plan.add)); err != nil {
			return fmt.Errorf("add %s: %w", plan.add, err)
		}
	}

	return nil
}

// syncLikedVideos keeps the user's aggregated liked-videos set in step with
// the primary relation. The conflict guard makes repeated like transitions
// idempotent for the back-reference.
func (e *Engine) syncLikedVideos(ctx context.Context, tx pgx.Tx, videoID, actorID string, plan transition) error {
	switch {
	case plan.add == PolarityLike:
		_, err := tx.Exec(ctx, `
            INSERT INTO liked_videos (user_id, video_id, created_at)
            VALUES ($1, $2, now())
            ON CONFLICT (user_id, video_id) DO NOTHING
        `, actorID, videoID)
		if err != nil {
			return fmt.Errorf("record liked video: %w", err)
		}
	case plan.removeLike:
		_, err := tx.Exec(ctx, `
            DELETE FROM liked_videos
            WHERE user_id = $1 AND video_id = $2
        `, actorID, videoID)
		if err != nil {
			return fmt.Errorf("remove liked video: %w", err)
		}
	}
	return nil
}

func (e *Engine) summarize(ctx context.Context, tx pgx.Tx, tables reactionTables, itemID string, plan transition) (models.ReactionSummary, error) {
	query := fmt.Sprintf(`
        SELECT
            count(*) FILTER (WHERE polarity = 'like'),
            count(*) FILTER (WHERE polarity = 'dislike')
        FROM %s
        WHERE %s = $1
    `, tables.reactions, tables.itemCol)

	summary := models.ReactionSummary{
		ItemID:   itemID,
		Liked:    plan.add == PolarityLike,
		Disliked: plan.add == PolarityDislike,
	}
	if err := tx.QueryRow(ctx, query, itemID).Scan(&summary.Likes, &summary.Dislikes); err != nil {
		return models.ReactionSummary{}, fmt.Errorf("count reactions: %w", err)
	}

	return summary, nil
}
