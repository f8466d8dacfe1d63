// Package file provides a JSON file persistence backend for local development and tests.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chainreact/chainreact/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of the file system.
type Persistence struct {
	root          string
	workflows     *WorkflowRepository
	subscriptions *SubscriptionRepository
	executions    *ExecutionRepository
	webhooks      *WebhookRepository
}

// NewPersistence creates a file persistence rooted at root. A "file://" prefix is accepted.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	store := &store{root: cleanRoot}

	return &Persistence{
		root:          cleanRoot,
		workflows:     &WorkflowRepository{store: store},
		subscriptions: &SubscriptionRepository{store: store},
		executions:    &ExecutionRepository{store: store},
		webhooks:      &WebhookRepository{store: store},
	}
}

func (fp *Persistence) Workflows() persistence.WorkflowRepository         { return fp.workflows }
func (fp *Persistence) Subscriptions() persistence.SubscriptionRepository { return fp.subscriptions }
func (fp *Persistence) Executions() persistence.ExecutionRepository       { return fp.executions }
func (fp *Persistence) Webhooks() persistence.WebhookRepository           { return fp.webhooks }

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// store serialises access to the JSON documents. One lock covers every
// collection so read-modify-write sequences such as cursor swaps are atomic
// within the process.
type store struct {
	root string
	mu   sync.RWMutex
}

func (s *store) path(collection, id string) string {
	return filepath.Join(s.root, collection, id+".json")
}

func (s *store) write(collection, id string, value any) error {
	if err := validateID(id); err != nil {
		return err
	}

	dir := filepath.Join(s.root, collection)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", collection, id, err)
	}

	if err := os.WriteFile(s.path(collection, id), data, 0600); err != nil {
		return fmt.Errorf("failed to write %s %s: %w", collection, id, err)
	}

	return nil
}

// read decodes the document into out and reports whether it existed.
func (s *store) read(collection, id string, out any) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}

	data, err := os.ReadFile(s.path(collection, id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to read %s %s: %w", collection, id, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to decode %s %s: %w", collection, id, err)
	}

	return true, nil
}

func (s *store) remove(collection, id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}

	err := os.Remove(s.path(collection, id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to delete %s %s: %w", collection, id, err)
	}

	return true, nil
}

// ids lists the document ids of a collection.
func (s *store) ids(collection string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, collection))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}

// loadAll decodes every document of a collection.
func loadAll[T any](s *store, collection string) ([]*T, error) {
	ids, err := s.ids(collection)
	if err != nil {
		return nil, err
	}

	items := make([]*T, 0, len(ids))

	for _, id := range ids {
		item := new(T)

		found, err := s.read(collection, id, item)
		if err != nil {
			return nil, err
		}

		if found {
			items = append(items, item)
		}
	}

	return items, nil
}

// validateID rejects identifiers that could escape the collection directory.
func validateID(id string) error {
	if id == "" || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", persistence.ErrInvalidID, id)
	}

	return nil
}
