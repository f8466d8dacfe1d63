// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/chainreact/chainreact/pkg/protocol"
	"github.com/chainreact/chainreact/pkg/registry"
)

// NewRegistry registers the native nodes and any node plugins under
// pluginsPath. Provider action nodes need invoker; without one they stay
// unregistered.
func NewRegistry(log *slog.Logger, pluginsPath string, invoker protocol.ActionInvoker) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)

	reg.RegisterDefaultNodes(log, invoker)

	if pluginsPath == "" {
		return reg, nil
	}

	plugins, err := reg.LoadNodePlugins(pluginsPath)
	if err != nil {
		return nil, fmt.Errorf("load node plugins: %w", err)
	}

	for _, plugin := range plugins {
		reg.RegisterNode(plugin)
	}

	return reg, nil
}
