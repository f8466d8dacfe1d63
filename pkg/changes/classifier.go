package changes

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"maps"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
)

// DefaultFreshness is how recently a resource without a reliable creation
// time must have been seen to count as created.
const DefaultFreshness = 2 * time.Minute

// Classifier labels raw changes relative to the start of their watch.
type Classifier struct {
	now       func() time.Time
	freshness time.Duration
}

type ClassifierOption func(*Classifier)

func WithClassifierClock(now func() time.Time) ClassifierOption {
	return func(c *Classifier) { c.now = now }
}

func WithFreshness(freshness time.Duration) ClassifierOption {
	return func(c *Classifier) { c.freshness = freshness }
}

// NewClassifier creates a classifier using DefaultFreshness and the wall clock
// unless opts override them.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{now: time.Now, freshness: DefaultFreshness}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ClassifyAll classifies a batch in order.
func (c *Classifier) ClassifyAll(subscription *models.WatchSubscription, raws []models.RawChange) []*models.Change {
	result := make([]*models.Change, 0, len(raws))

	for _, raw := range raws {
		result = append(result, c.Classify(subscription, raw))
	}

	return result
}

// Classify normalizes one raw change.
func (c *Classifier) Classify(subscription *models.WatchSubscription, raw models.RawChange) *models.Change {
	item := itemOf(raw)

	return &models.Change{
		Provider:         subscription.Provider,
		ChangeType:       c.changeType(subscription, raw),
		ResourceIdentity: raw.ResourceID,
		Scope:            subscription.Scope(),
		Item:             item,
		Timestamp:        timestampOf(raw),
		Signature:        signature(item),
		IsFolder:         raw.IsFolder(),
		Raw:              raw,
	}
}

func (c *Classifier) changeType(subscription *models.WatchSubscription, raw models.RawChange) models.ChangeType {
	switch raw.ResourceKind {
	case models.ResourceRow:
		switch {
		case raw.Removed:
			return models.ChangeDeleted
		case c.isNew(subscription, raw):
			return models.ChangeNewRow
		default:
			return models.ChangeUpdatedRow
		}
	case models.ResourceWorksheet:
		switch {
		case raw.Removed:
			return models.ChangeDeleted
		case c.isNew(subscription, raw):
			return models.ChangeNewWorksheet
		default:
			return models.ChangeUpdated
		}
	}

	folder := raw.IsFolder()

	switch {
	case raw.Removed && folder:
		return models.ChangeFolderDeleted
	case raw.Removed:
		return models.ChangeDeleted
	case c.isNew(subscription, raw) && folder:
		return models.ChangeFolderCreated
	case c.isNew(subscription, raw):
		return models.ChangeCreated
	case folder:
		return models.ChangeFolderUpdated
	default:
		return models.ChangeUpdated
	}
}

// isNew compares the creation time with the watch start. Without both, a
// resource is new when it was first seen within the freshness window.
func (c *Classifier) isNew(subscription *models.WatchSubscription, raw models.RawChange) bool {
	if raw.CreatedAt != nil && !subscription.StartedAt.IsZero() {
		return !raw.CreatedAt.Before(subscription.StartedAt)
	}

	reference := raw.FirstSeenAt
	if reference == nil {
		reference = raw.CreatedAt
	}

	if reference == nil {
		reference = raw.ModifiedAt
	}

	if reference == nil {
		return false
	}

	return c.now().Sub(*reference) <= c.freshness
}

func timestampOf(raw models.RawChange) *time.Time {
	if raw.ModifiedAt != nil || raw.Removed {
		return raw.ModifiedAt
	}

	return raw.CreatedAt
}

func itemOf(raw models.RawChange) map[string]any {
	item := map[string]any{"id": raw.ResourceID}

	set := func(key string, value any, present bool) {
		if present {
			item[key] = value
		}
	}

	set("name", raw.Name, raw.Name != "")
	set("mime_type", raw.MimeType, raw.MimeType != "")
	set("creator_email", raw.CreatorEmail, raw.CreatorEmail != "")
	set("parent_ids", raw.ParentIDs, len(raw.ParentIDs) > 0)
	set("values", raw.Values, len(raw.Values) > 0)
	set("removed", true, raw.Removed)

	if raw.Size != nil {
		item["size"] = *raw.Size
	}

	for key, value := range map[string]*time.Time{
		"created_at":  raw.CreatedAt,
		"modified_at": raw.ModifiedAt,
		"starts_at":   raw.StartsAt,
	} {
		if value != nil {
			item[key] = value.UTC().Format(time.RFC3339Nano)
		}
	}

	maps.Copy(item, raw.Item)

	return item
}

// signature hashes the item. encoding/json writes map keys sorted, which
// makes the encoding canonical.
func signature(item map[string]any) string {
	data, err := json.Marshal(item)
	if err != nil {
		return ""
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}
