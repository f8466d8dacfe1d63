package changes_test

import (
	"testing"
	"time"

	"github.com/chainreact/chainreact/pkg/changes"
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/stretchr/testify/assert"
)

func at(t time.Time) *time.Time { return &t }

func TestClassifier_Classify(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	now := start.Add(time.Hour)
	classifier := changes.NewClassifier(changes.WithClassifierClock(func() time.Time { return now }))
	subscription := &models.WatchSubscription{
		AccountID:     "acct",
		IntegrationID: "int",
		Provider:      models.ProviderGoogleDrive,
		StartedAt:     start,
	}
	noStart := &models.WatchSubscription{Provider: models.ProviderGoogleDrive}

	tests := []struct {
		name         string
		subscription *models.WatchSubscription
		raw          models.RawChange
		want         models.ChangeType
	}{
		{"created at watch start", subscription, models.RawChange{CreatedAt: at(start)}, models.ChangeCreated},
		{"created before watch", subscription, models.RawChange{CreatedAt: at(start.Add(-time.Second))}, models.ChangeUpdated},
		{"folder created", subscription, models.RawChange{CreatedAt: at(start), MimeType: models.FolderMimeType}, models.ChangeFolderCreated},
		{"folder kind updated", subscription, models.RawChange{CreatedAt: at(start.Add(-time.Hour)), ResourceKind: models.ResourceFolder}, models.ChangeFolderUpdated},
		{"removed file", subscription, models.RawChange{Removed: true, CreatedAt: at(start)}, models.ChangeDeleted},
		{"removed folder", subscription, models.RawChange{Removed: true, MimeType: models.FolderMimeType}, models.ChangeFolderDeleted},
		{"fresh without start", noStart, models.RawChange{FirstSeenAt: at(now.Add(-time.Minute))}, models.ChangeCreated},
		{"stale without start", noStart, models.RawChange{FirstSeenAt: at(now.Add(-3 * time.Minute))}, models.ChangeUpdated},
		{"no timestamps", subscription, models.RawChange{}, models.ChangeUpdated},
		{"new row", subscription, models.RawChange{ResourceKind: models.ResourceRow, CreatedAt: at(now)}, models.ChangeNewRow},
		{"updated row", subscription, models.RawChange{ResourceKind: models.ResourceRow, CreatedAt: at(start.Add(-time.Hour))}, models.ChangeUpdatedRow},
		{"new worksheet", subscription, models.RawChange{ResourceKind: models.ResourceWorksheet, CreatedAt: at(now)}, models.ChangeNewWorksheet},
		{"removed worksheet", subscription, models.RawChange{ResourceKind: models.ResourceWorksheet, Removed: true}, models.ChangeDeleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			change := classifier.Classify(tt.subscription, tt.raw)
			assert.Equal(t, tt.want, change.ChangeType)
		})
	}
}

func TestClassifier_NormalizedChange(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	modified := start.Add(time.Minute)
	classifier := changes.NewClassifier()
	subscription := &models.WatchSubscription{
		AccountID:     "acct",
		IntegrationID: "int",
		Provider:      models.ProviderGoogleDrive,
		StartedAt:     start,
		ScopeMetadata: map[string]any{models.ScopeFolderID: "parent-1"},
	}

	raw := models.RawChange{
		ResourceID: "file-1",
		Name:       "report.pdf",
		MimeType:   "application/pdf",
		CreatedAt:  at(start),
		ModifiedAt: at(modified),
		ParentIDs:  []string{"parent-1"},
		Item:       map[string]any{"webViewLink": "https://drive/file-1"},
	}

	change := classifier.Classify(subscription, raw)

	assert.Equal(t, models.ProviderGoogleDrive, change.Provider)
	assert.Equal(t, "file-1", change.ResourceIdentity)
	assert.Equal(t, modified, *change.Timestamp)
	assert.Equal(t, "report.pdf", change.Item["name"])
	assert.Equal(t, "https://drive/file-1", change.Item["webViewLink"])
	assert.Equal(t, "parent-1", change.Scope.Params[models.ScopeFolderID])
	assert.Len(t, change.Signature, 64)

	again := classifier.Classify(subscription, raw)
	assert.Equal(t, change.Signature, again.Signature)

	raw.Name = "renamed.pdf"
	assert.NotEqual(t, change.Signature, classifier.Classify(subscription, raw).Signature)
}

func TestClassifier_RemovedUsesModifiedTimeOnly(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	subscription := &models.WatchSubscription{Provider: models.ProviderGoogleDrive, StartedAt: created}

	change := changes.NewClassifier().Classify(subscription, models.RawChange{ResourceID: "f", Removed: true, CreatedAt: &created})

	assert.Nil(t, change.Timestamp)
}
