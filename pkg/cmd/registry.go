// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dukex/converse/pkg/actions/httprequest"
	logaction "github.com/dukex/converse/pkg/actions/log"
	"github.com/dukex/converse/pkg/actions/transform"
	"github.com/dukex/converse/pkg/registry"
)

func registerActionPlugins(reg *registry.Registry, pluginsPath string) error {
	actionPlugins, err := reg.LoadActionPlugins(pluginsPath)
	if err != nil {
		return fmt.Errorf("failed to load action plugins: %w", err)
	}

	for _, plugin := range actionPlugins {
		reg.RegisterAction(plugin)
	}

	return nil
}

func registerNativeActions(reg *registry.Registry) {
	reg.RegisterAction(httprequest.NewActionFactory())
	reg.RegisterAction(transform.NewTransformActionFactory())
	reg.RegisterAction(logaction.NewLogActionFactory())
}

// NewRegistry registers the native actions and any action plugins found
// under pluginsPath. An empty pluginsPath skips plugin loading.
func NewRegistry(log *slog.Logger, pluginsPath string) (*registry.Registry, error) {
	reg := registry.NewRegistry(log)

	if pluginsPath != "" {
		err := registerActionPlugins(reg, pluginsPath)
		if err != nil {
			return nil, err
		}
	}

	registerNativeActions(reg)

	return reg, nil
}
