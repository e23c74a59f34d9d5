package stubs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moderation/internal/models"
	"moderation/internal/storage"
)

func TestMockDB_UpdateCommitsOnSuccess(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()
	require.NoError(t, db.Initialize(ctx))

	now := time.Now()
	var sub models.Submission
	err := db.Update(ctx, func(tx storage.Tx) error {
		if _, _, err := tx.UpsertUser(ctx, 1, models.Profile{Username: "bob"}, now); err != nil {
			return err
		}
		var err error
		sub, err = tx.CreateSubmission(ctx, models.Submission{UserID: 1, Section: models.SectionBoudoir, CreatedAt: now})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), sub.ID)
	assert.Equal(t, models.DecisionPending, sub.Decision)

	active, err := db.GetActiveSubmission(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, active.ID)
}

func TestMockDB_UpdateDiscardsOnError(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.Update(ctx, func(tx storage.Tx) error {
		if _, _, err := tx.UpsertUser(ctx, 2, models.Profile{}, time.Now()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = db.GetUser(ctx, 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMockDB_FailWrites(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()
	fault := errors.New("disk full")

	db.FailWrites("SetUserStatus", fault)
	err := db.Update(ctx, func(tx storage.Tx) error {
		if _, _, err := tx.UpsertUser(ctx, 3, models.Profile{}, time.Now()); err != nil {
			return err
		}
		return tx.SetUserStatus(ctx, 3, models.StatusApproved, time.Now())
	})
	assert.ErrorIs(t, err, fault)

	// the user insert was rolled back together with the failed write
	_, err = db.GetUser(ctx, 3)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	db.FailWrites("SetUserStatus", nil)
	err = db.Update(ctx, func(tx storage.Tx) error {
		_, _, err := tx.UpsertUser(ctx, 3, models.Profile{}, time.Now())
		return err
	})
	assert.NoError(t, err)
}

func TestMockDB_DeleteCascades(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()
	now := time.Now()

	var sub models.Submission
	err := db.Update(ctx, func(tx storage.Tx) error {
		var err error
		sub, err = tx.CreateSubmission(ctx, models.Submission{UserID: 4, Section: models.SectionGarage, CreatedAt: now})
		if err != nil {
			return err
		}
		if _, err := tx.AddMedia(ctx, models.Media{SubmissionID: sub.ID, Category: models.CategoryIntimate, Kind: models.KindVideo, Handle: "v"}); err != nil {
			return err
		}
		return tx.SetIntakeState(ctx, models.IntakeState{UserID: 4, SubmissionID: sub.ID, Category: models.CategoryIntimate})
	})
	require.NoError(t, err)

	counts, err := db.CountMedia(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Category{models.CategoryNormal}, counts.Missing())

	require.NoError(t, db.Update(ctx, func(tx storage.Tx) error { return tx.DeleteSubmission(ctx, sub.ID) }))

	media, err := db.ListMedia(ctx, sub.ID)
	require.NoError(t, err)
	assert.Empty(t, media)
	_, err = db.GetIntakeState(ctx, 4)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = db.GetSubmission(ctx, sub.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMockDB_Stats(t *testing.T) {
	db := NewMockDB()
	ctx := context.Background()
	now := time.Now()

	err := db.Update(ctx, func(tx storage.Tx) error {
		for _, id := range []int64{1, 2, 3} {
			if _, _, err := tx.UpsertUser(ctx, id, models.Profile{}, now); err != nil {
				return err
			}
		}
		if err := tx.SetUserStatus(ctx, 2, models.StatusBanned, now); err != nil {
			return err
		}
		_, err := tx.CreateSubmission(ctx, models.Submission{UserID: 1, Section: models.SectionCouples, CreatedAt: now})
		return err
	})
	require.NoError(t, err)

	stats, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{TotalUsers: 3, PendingSubmissions: 1, BannedUsers: 1}, stats)
}

func TestAuditLog_ListDecisions(t *testing.T) {
	audit := NewAuditLog()
	ctx := context.Background()

	require.NoError(t, audit.RecordDecision(ctx, models.DecisionRecord{SubmissionID: 1, Verdict: models.VerdictNeedsFix}))
	require.NoError(t, audit.RecordDecision(ctx, models.DecisionRecord{SubmissionID: 2, Verdict: models.VerdictReject}))
	require.NoError(t, audit.RecordDecision(ctx, models.DecisionRecord{SubmissionID: 1, Verdict: models.VerdictApprove}))

	records, err := audit.ListDecisions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.VerdictNeedsFix, records[0].Verdict)
	assert.Equal(t, models.VerdictApprove, records[1].Verdict)
	assert.NoError(t, audit.Close())
}
