// Package registry maps node type tags to the factories that build them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"sort"
	"strings"

	"github.com/chainreact/chainreact/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var ErrUnknownNodeType = errors.New("unknown node type")

// ConfigError reports a node config rejected by its factory schema.
type ConfigError struct {
	NodeType string
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s config: %s", e.NodeType, strings.Join(e.Problems, "; "))
}

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.NodeFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log.With("module", "registry"),
		factories: make(map[string]protocol.NodeFactory),
	}
}

// LoadNodePlugins opens every shared object under pluginsPath/nodes and looks
// up its exported Node symbol, which must be a protocol.NodeFactory.
func (r *Registry) LoadNodePlugins(pluginsPath string) ([]protocol.NodeFactory, error) {
	rootPath := pluginsPath + "/nodes"

	paths, err := fs.Glob(os.DirFS(rootPath), "*.so")
	if err != nil {
		return nil, err
	}

	l := r.logger.With(slog.String("path", rootPath))

	factories := make([]protocol.NodeFactory, 0, len(paths))

	for _, p := range paths {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("open plugin %s: %w", p, err)
		}

		symbol, err := plg.Lookup("Node")
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", p, err)
		}

		factory, ok := symbol.(protocol.NodeFactory)
		if !ok {
			return nil, fmt.Errorf("plugin %s: Node is not a node factory", p)
		}

		factories = append(factories, factory)

		l.Info("Loaded node plugin", slog.String("plugin", p), slog.String("type", factory.ID()))
	}

	return factories, nil
}

func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	if _, exists := r.factories[factory.ID()]; exists {
		r.logger.Warn("Replacing node factory", "type", factory.ID())
	}

	r.factories[factory.ID()] = factory
}

func (r *Registry) Factory(nodeType string) (protocol.NodeFactory, bool) {
	factory, ok := r.factories[nodeType]

	return factory, ok
}

// Types returns the registered node type tags, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for nodeType := range r.factories {
		types = append(types, nodeType)
	}

	sort.Strings(types)

	return types
}

// Factories returns the registered factories sorted by type tag.
func (r *Registry) Factories() []protocol.NodeFactory {
	factories := make([]protocol.NodeFactory, 0, len(r.factories))
	for _, nodeType := range r.Types() {
		factories = append(factories, r.factories[nodeType])
	}

	return factories
}

// ValidateConfig checks config against the JSON schema of nodeType.
func (r *Registry) ValidateConfig(nodeType string, config map[string]any) error {
	factory, ok := r.factories[nodeType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNodeType, nodeType)
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(factory.Schema()),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("validate %s config: %w", nodeType, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}

	return &ConfigError{NodeType: nodeType, Problems: problems}
}

// CreateNode builds node id of nodeType from an already resolved config.
func (r *Registry) CreateNode(ctx context.Context, nodeType, id string, config map[string]any) (protocol.Node, error) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, nodeType)
	}

	if config == nil {
		config = map[string]any{}
	}

	return factory.Create(ctx, id, config)
}
