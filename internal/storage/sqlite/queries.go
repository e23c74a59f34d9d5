package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"moderation/internal/models"
	"moderation/internal/storage"
)

// queries implements storage.Tx on top of either the database or a transaction
type queries struct {
	q sqlx.ExtContext
}

func fail(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, storage.ErrFailure, err)
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nullMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}

type userRow struct {
	UserID     int64  `db:"user_id"`
	Username   string `db:"username"`
	FirstName  string `db:"first_name"`
	LastName   string `db:"last_name"`
	Status     string `db:"status"`
	CreatedAt  int64  `db:"created_at"`
	LastSeenAt int64  `db:"last_seen_at"`
}

func (r userRow) model() models.User {
	return models.User{
		ID: r.UserID,
		Profile: models.Profile{
			Username:  r.Username,
			FirstName: r.FirstName,
			LastName:  r.LastName,
		},
		Status:     models.AccountStatus(r.Status),
		CreatedAt:  fromMillis(r.CreatedAt),
		LastSeenAt: fromMillis(r.LastSeenAt),
	}
}

type submissionRow struct {
	ID          int64         `db:"id"`
	UserID      int64         `db:"user_id"`
	Section     string        `db:"section"`
	Decision    string        `db:"decision"`
	ModeratorID sql.NullInt64 `db:"moderator_id"`
	CreatedAt   int64         `db:"created_at"`
	SubmittedAt sql.NullInt64 `db:"submitted_at"`
	DecidedAt   sql.NullInt64 `db:"decided_at"`
}

func (r submissionRow) model() models.Submission {
	return models.Submission{
		ID:          r.ID,
		UserID:      r.UserID,
		Section:     models.Section(r.Section),
		Decision:    models.Decision(r.Decision),
		ModeratorID: r.ModeratorID.Int64,
		CreatedAt:   fromMillis(r.CreatedAt),
		SubmittedAt: nullMillis(r.SubmittedAt),
		DecidedAt:   nullMillis(r.DecidedAt),
	}
}

type mediaRow struct {
	ID           int64  `db:"id"`
	SubmissionID int64  `db:"submission_id"`
	Category     string `db:"category"`
	Kind         string `db:"kind"`
	Handle       string `db:"handle"`
	CreatedAt    int64  `db:"created_at"`
}

func (r mediaRow) model() models.Media {
	return models.Media{
		ID:           r.ID,
		SubmissionID: r.SubmissionID,
		Category:     models.Category(r.Category),
		Kind:         models.MediaKind(r.Kind),
		Handle:       r.Handle,
		CreatedAt:    fromMillis(r.CreatedAt),
	}
}

const submissionColumns = `id, user_id, section, decision, moderator_id, created_at, submitted_at, decided_at`

func (q queries) getSubmission(ctx context.Context, op, query string, args ...interface{}) (models.Submission, error) {
	var row submissionRow
	if err := sqlx.GetContext(ctx, q.q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Submission{}, storage.ErrNotFound
		}
		return models.Submission{}, fail(op, err)
	}
	return row.model(), nil
}

func (q queries) listSubmissions(ctx context.Context, op, query string, args ...interface{}) ([]models.Submission, error) {
	var rows []submissionRow
	if err := sqlx.SelectContext(ctx, q.q, &rows, query, args...); err != nil {
		return nil, fail(op, err)
	}
	subs := make([]models.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.model())
	}
	return subs, nil
}

// GetUser returns a user by Telegram ID
func (q queries) GetUser(ctx context.Context, userID int64) (models.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, q.q, &row,
		`SELECT user_id, username, first_name, last_name, status, created_at, last_seen_at FROM users WHERE user_id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, fail("get user", err)
	}
	return row.model(), nil
}

func (q queries) GetSubmission(ctx context.Context, id int64) (models.Submission, error) {
	return q.getSubmission(ctx, "get submission",
		`SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
}

func (q queries) GetActiveSubmission(ctx context.Context, userID int64) (models.Submission, error) {
	return q.getSubmission(ctx, "get active submission",
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE user_id = ? AND decision IN ('pending', 'needs_fix')
		 ORDER BY created_at DESC, id DESC LIMIT 1`, userID)
}

func (q queries) GetLatestSubmission(ctx context.Context, userID int64) (models.Submission, error) {
	return q.getSubmission(ctx, "get latest submission",
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, userID)
}

func (q queries) ListUserSubmissions(ctx context.Context, userID int64, limit int) ([]models.Submission, error) {
	return q.listSubmissions(ctx, "list user submissions",
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
}

func (q queries) ListAwaitingModeration(ctx context.Context, limit int) ([]models.Submission, error) {
	return q.listSubmissions(ctx, "list awaiting moderation",
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE decision = 'pending' AND submitted_at IS NOT NULL
		 ORDER BY submitted_at ASC, id ASC LIMIT ?`, limit)
}

func (q queries) ListMedia(ctx context.Context, submissionID int64) ([]models.Media, error) {
	var rows []mediaRow
	err := sqlx.SelectContext(ctx, q.q, &rows,
		`SELECT id, submission_id, category, kind, handle, created_at FROM media
		 WHERE submission_id = ? ORDER BY id`, submissionID)
	if err != nil {
		return nil, fail("list media", err)
	}
	media := make([]models.Media, 0, len(rows))
	for _, row := range rows {
		media = append(media, row.model())
	}
	return media, nil
}

func (q queries) CountMedia(ctx context.Context, submissionID int64) (models.MediaCounts, error) {
	var rows []struct {
		Category string `db:"category"`
		Count    int    `db:"cnt"`
	}
	err := sqlx.SelectContext(ctx, q.q, &rows,
		`SELECT category, COUNT(*) AS cnt FROM media WHERE submission_id = ? GROUP BY category`, submissionID)
	if err != nil {
		return nil, fail("count media", err)
	}
	counts := models.MediaCounts{}
	for _, c := range models.MandatoryCategories {
		counts[c] = 0
	}
	for _, row := range rows {
		counts[models.Category(row.Category)] = row.Count
	}
	return counts, nil
}

func (q queries) GetIntakeState(ctx context.Context, userID int64) (models.IntakeState, error) {
	var row struct {
		UserID       int64  `db:"user_id"`
		SubmissionID int64  `db:"submission_id"`
		Category     string `db:"category"`
		UpdatedAt    int64  `db:"updated_at"`
	}
	err := sqlx.GetContext(ctx, q.q, &row,
		`SELECT user_id, submission_id, category, updated_at FROM intake_state WHERE user_id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.IntakeState{}, storage.ErrNotFound
		}
		return models.IntakeState{}, fail("get intake state", err)
	}
	return models.IntakeState{
		UserID:       row.UserID,
		SubmissionID: row.SubmissionID,
		Category:     models.Category(row.Category),
		UpdatedAt:    fromMillis(row.UpdatedAt),
	}, nil
}

func (q queries) UpsertUser(ctx context.Context, userID int64, profile models.Profile, now time.Time) (models.User, bool, error) {
	_, err := q.GetUser(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		_, err = q.q.ExecContext(ctx,
			`INSERT INTO users (user_id, username, first_name, last_name, status, created_at, last_seen_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			userID, profile.Username, profile.FirstName, profile.LastName,
			string(models.StatusPending), toMillis(now), toMillis(now))
		if err != nil {
			return models.User{}, false, fail("insert user", err)
		}
		user, err := q.GetUser(ctx, userID)
		return user, true, err
	case err != nil:
		return models.User{}, false, err
	}

	_, err = q.q.ExecContext(ctx,
		`UPDATE users SET username = ?, first_name = ?, last_name = ?, last_seen_at = ? WHERE user_id = ?`,
		profile.Username, profile.FirstName, profile.LastName, toMillis(now), userID)
	if err != nil {
		return models.User{}, false, fail("update user", err)
	}
	user, err := q.GetUser(ctx, userID)
	return user, false, err
}

func (q queries) exec(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := q.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fail(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fail(op, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (q queries) SetUserStatus(ctx context.Context, userID int64, status models.AccountStatus, now time.Time) error {
	return q.exec(ctx, "set user status",
		`UPDATE users SET status = ?, last_seen_at = ? WHERE user_id = ?`,
		string(status), toMillis(now), userID)
}

func (q queries) CreateSubmission(ctx context.Context, sub models.Submission) (models.Submission, error) {
	if sub.Decision == "" {
		sub.Decision = models.DecisionPending
	}
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO submissions (user_id, section, decision, created_at) VALUES (?, ?, ?, ?)`,
		sub.UserID, string(sub.Section), string(sub.Decision), toMillis(sub.CreatedAt))
	if err != nil {
		return models.Submission{}, fail("insert submission", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Submission{}, fail("insert submission", err)
	}
	return q.GetSubmission(ctx, id)
}

func (q queries) MarkSubmitted(ctx context.Context, id int64, at time.Time) error {
	return q.exec(ctx, "mark submitted",
		`UPDATE submissions SET decision = 'pending', submitted_at = ? WHERE id = ?`,
		toMillis(at), id)
}

func (q queries) SetDecision(ctx context.Context, id int64, decision models.Decision, moderatorID int64, at time.Time) error {
	return q.exec(ctx, "set decision",
		`UPDATE submissions SET decision = ?, moderator_id = ?, decided_at = ? WHERE id = ?`,
		string(decision), moderatorID, toMillis(at), id)
}

func (q queries) DeleteSubmission(ctx context.Context, id int64) error {
	return q.exec(ctx, "delete submission", `DELETE FROM submissions WHERE id = ?`, id)
}

func (q queries) AddMedia(ctx context.Context, media models.Media) (models.Media, error) {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO media (submission_id, category, kind, handle, created_at) VALUES (?, ?, ?, ?, ?)`,
		media.SubmissionID, string(media.Category), string(media.Kind), media.Handle, toMillis(media.CreatedAt))
	if err != nil {
		return models.Media{}, fail("insert media", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Media{}, fail("insert media", err)
	}
	media.ID = id
	media.CreatedAt = fromMillis(toMillis(media.CreatedAt))
	return media, nil
}

func (q queries) SetIntakeState(ctx context.Context, state models.IntakeState) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO intake_state (user_id, submission_id, category, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   submission_id = excluded.submission_id,
		   category = excluded.category,
		   updated_at = excluded.updated_at`,
		state.UserID, state.SubmissionID, string(state.Category), toMillis(state.UpdatedAt))
	if err != nil {
		return fail("set intake state", err)
	}
	return nil
}

func (q queries) ClearIntakeState(ctx context.Context, userID int64) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM intake_state WHERE user_id = ?`, userID); err != nil {
		return fail("clear intake state", err)
	}
	return nil
}
