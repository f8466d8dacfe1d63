package models

import (
	"slices"
	"time"
)

// FolderMimeType marks Drive folders.
const FolderMimeType = "application/vnd.google-apps.folder"

// ChangeType is the classified kind of a change.
type ChangeType string

const (
	ChangeCreated       ChangeType = "created"
	ChangeUpdated       ChangeType = "updated"
	ChangeDeleted       ChangeType = "deleted"
	ChangeFolderCreated ChangeType = "folder_created"
	ChangeFolderUpdated ChangeType = "folder_updated"
	ChangeFolderDeleted ChangeType = "folder_deleted"
	ChangeNewRow        ChangeType = "new_row"
	ChangeUpdatedRow    ChangeType = "updated_row"
	ChangeNewWorksheet  ChangeType = "new_worksheet"
)

// ResourceKind tells the classifier which taxonomy a raw change belongs to.
type ResourceKind string

const (
	ResourceFile      ResourceKind = "file"
	ResourceFolder    ResourceKind = "folder"
	ResourceEvent     ResourceKind = "event"
	ResourceRow       ResourceKind = "row"
	ResourceWorksheet ResourceKind = "worksheet"
)

// RawChange is one entry of a provider incremental-changes response.
type RawChange struct {
	ResourceID   string         `json:"resource_id"`
	ResourceKind ResourceKind   `json:"resource_kind"`
	Removed      bool           `json:"removed,omitempty"`
	CreatedAt    *time.Time     `json:"created_at,omitempty"`
	ModifiedAt   *time.Time     `json:"modified_at,omitempty"`
	FirstSeenAt  *time.Time     `json:"first_seen_at,omitempty"`
	Name         string         `json:"name,omitempty"`
	MimeType     string         `json:"mime_type,omitempty"`
	Size         *int64         `json:"size,omitempty"`
	CreatorEmail string         `json:"creator_email,omitempty"`
	ParentIDs    []string       `json:"parent_ids,omitempty"`
	StartsAt     *time.Time     `json:"starts_at,omitempty"`
	Values       map[string]any `json:"values,omitempty"`
	Item         map[string]any `json:"item,omitempty"`
}

// IsFolder reports whether the change concerns a folder.
func (r RawChange) IsFolder() bool {
	return r.ResourceKind == ResourceFolder || r.MimeType == FolderMimeType
}

// Scope is the resource scope a change belongs to.
type Scope struct {
	AccountID     string            `json:"account_id"`
	IntegrationID string            `json:"integration_id"`
	Provider      Provider          `json:"provider"`
	Params        map[string]string `json:"params,omitempty"`
}

// Change is a classified, normalized change handed to the matcher.
type Change struct {
	Provider         Provider       `json:"provider"`
	ChangeType       ChangeType     `json:"change_type"`
	ResourceIdentity string         `json:"resource_identity"`
	Scope            Scope          `json:"scope"`
	Item             map[string]any `json:"item,omitempty"`
	Timestamp        *time.Time     `json:"timestamp,omitempty"`
	Signature        string         `json:"signature,omitempty"`
	IsFolder         bool           `json:"is_folder"`
	Raw              RawChange      `json:"raw"`
}

// ScopeValues returns the values the change carries for a scope field. Folder
// scope is the resource's parents; the watch's folder is used only when the
// provider reported none.
func (c *Change) ScopeValues(field string) []string {
	if field == ScopeFolderID && len(c.Raw.ParentIDs) > 0 {
		return slices.Clone(c.Raw.ParentIDs)
	}

	if value, ok := c.Scope.Params[field]; ok && value != "" {
		return []string{value}
	}

	return nil
}

// EventTime is the provider time the change happened at, if known.
func (c *Change) EventTime() *time.Time {
	if c.Timestamp != nil {
		return c.Timestamp
	}

	return c.Raw.CreatedAt
}
