package changes_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/chainreact/chainreact/pkg/changes"
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchCall struct {
	cursor string
	since  time.Time
}

type fakeAPI struct {
	calls   []fetchCall
	batches []*changes.ChangeBatch
	errs    []error
}

func (f *fakeAPI) FetchChanges(_ context.Context, _ *models.WatchSubscription, cursor string, since time.Time) (*changes.ChangeBatch, error) {
	i := len(f.calls)
	f.calls = append(f.calls, fetchCall{cursor: cursor, since: since})

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}

	if i < len(f.batches) {
		return f.batches[i], nil
	}

	return &changes.ChangeBatch{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func saveSubscription(t *testing.T, p *file.Persistence, id, channel, cursor string) *models.WatchSubscription {
	t.Helper()

	subscription := &models.WatchSubscription{
		ID:            id,
		AccountID:     "acct",
		IntegrationID: "int",
		Provider:      models.ProviderGoogleDrive,
		ChannelID:     channel,
		Cursor:        cursor,
		StartedAt:     time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Subscriptions().Save(context.Background(), subscription))

	return subscription
}

func TestFetcher_ResolveRejectsStaleChannels(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	fetcher := changes.NewFetcher(p.Subscriptions(), &fakeAPI{}, testLogger())

	saveSubscription(t, p, "sub-old", "chan-old", "tok1")
	time.Sleep(time.Millisecond)
	saveSubscription(t, p, "sub-new", "chan-new", "tok1")

	current, err := fetcher.Resolve(ctx, models.PushNotification{Provider: models.ProviderGoogleDrive, ChannelID: "chan-new"})
	require.NoError(t, err)
	assert.Equal(t, "sub-new", current.ID)

	_, err = fetcher.Resolve(ctx, models.PushNotification{Provider: models.ProviderGoogleDrive, ChannelID: "chan-old"})
	assert.True(t, changes.IsStaleChannel(err))

	_, err = fetcher.Resolve(ctx, models.PushNotification{Provider: models.ProviderGoogleDrive, ChannelID: "unknown"})
	assert.True(t, changes.IsStaleChannel(err))

	_, err = fetcher.Resolve(ctx, models.PushNotification{Provider: models.ProviderGoogleCalendar, ChannelID: "chan-new"})
	assert.True(t, changes.IsStaleChannel(err))
}

func TestFetcher_AdvancesCursor(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	api := &fakeAPI{batches: []*changes.ChangeBatch{
		{Changes: []models.RawChange{{ResourceID: "file-1"}}, NextCursor: "tok2"},
	}}
	fetcher := changes.NewFetcher(p.Subscriptions(), api, testLogger())
	subscription := saveSubscription(t, p, "sub-1", "chan-1", "tok1")

	batch, err := fetcher.Fetch(ctx, subscription)
	require.NoError(t, err)
	assert.Len(t, batch.Changes, 1)
	assert.Equal(t, "tok1", api.calls[0].cursor)
	assert.Equal(t, "tok2", subscription.Cursor)

	stored, err := p.Subscriptions().ByID(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "tok2", stored.Cursor)
}

func TestFetcher_FirstSyncStartsAtWatchStart(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	api := &fakeAPI{batches: []*changes.ChangeBatch{{NextCursor: "tok1"}}}
	fetcher := changes.NewFetcher(p.Subscriptions(), api, testLogger())
	subscription := saveSubscription(t, p, "sub-1", "chan-1", "")

	_, err := fetcher.Fetch(ctx, subscription)
	require.NoError(t, err)
	assert.Equal(t, "", api.calls[0].cursor)
	assert.Equal(t, subscription.StartedAt, api.calls[0].since)
	assert.Equal(t, "tok1", subscription.Cursor)
}

func TestFetcher_CursorConflictStillReturnsBatch(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	api := &fakeAPI{batches: []*changes.ChangeBatch{
		{Changes: []models.RawChange{{ResourceID: "file-1"}}, NextCursor: "tok2"},
	}}
	fetcher := changes.NewFetcher(p.Subscriptions(), api, testLogger())
	subscription := saveSubscription(t, p, "sub-1", "chan-1", "tok1")

	require.NoError(t, p.Subscriptions().AdvanceCursor(ctx, "sub-1", "tok1", "tok9"))

	batch, err := fetcher.Fetch(ctx, subscription)
	require.NoError(t, err)
	assert.Len(t, batch.Changes, 1)

	stored, err := p.Subscriptions().ByID(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "tok9", stored.Cursor)
}

func TestFetcher_ExpiredCursorRestartsSync(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	api := &fakeAPI{
		errs:    []error{changes.ErrCursorExpired, nil},
		batches: []*changes.ChangeBatch{nil, {NextCursor: "fresh"}},
	}
	fetcher := changes.NewFetcher(p.Subscriptions(), api, testLogger())
	subscription := saveSubscription(t, p, "sub-1", "chan-1", "old")

	_, err := fetcher.Fetch(ctx, subscription)
	require.NoError(t, err)
	require.Len(t, api.calls, 2)
	assert.Equal(t, "", api.calls[1].cursor)
	assert.Equal(t, "fresh", subscription.Cursor)
}

func TestFetcher_ProviderErrorsSurface(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())
	providerErr := &changes.ProviderError{Provider: models.ProviderGoogleDrive, Op: "changes.list", StatusCode: 429, Transient: true, Err: errors.New("rate limited")}
	api := &fakeAPI{errs: []error{providerErr}}
	fetcher := changes.NewFetcher(p.Subscriptions(), api, testLogger())
	subscription := saveSubscription(t, p, "sub-1", "chan-1", "tok1")

	_, err := fetcher.Fetch(ctx, subscription)
	require.Error(t, err)
	assert.True(t, changes.IsTransient(err))
	assert.Len(t, api.calls, 1)

	stored, err := p.Subscriptions().ByID(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "tok1", stored.Cursor)
}
