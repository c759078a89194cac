package cmd

import (
	"context"

	"github.com/scribesync/scribe/internal/config"
	"github.com/scribesync/scribe/internal/engine"
	"github.com/scribesync/scribe/internal/output"
)

// openEngine builds a running engine from the local database and the
// global config. Callers must Close it.
func openEngine(ctx context.Context) (*engine.Engine, error) {
	return engine.Open(ctx, engine.Options{
		BaseDir:       getBaseDir(),
		ServerURL:     config.ServerURL(),
		AutoSync:      config.AutoSync(),
		SyncInterval:  config.SyncInterval(),
		Settle:        config.Settle(),
		ProbeInterval: config.ProbeInterval(),
		DraftDebounce: config.DraftDebounce(),
		OnWarning: func(err error) {
			output.Warning("some changes could not be synchronized: %v", err)
		},
	})
}
