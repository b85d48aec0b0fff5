package actions

import (
	"fmt"
	"strings"

	"graft.dev/graft/internal/config"
	"graft.dev/graft/internal/tui"
)

// ConfigListAction prints all configuration values in a formatted way
func ConfigListAction(splog *tui.Splog, repoRoot string) error {
	cfg, err := config.GetRepoConfig(repoRoot)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	lines := make([]string, 0, len(config.Keys))
	for _, key := range config.Keys {
		value, err := cfg.Get(key)
		if err != nil {
			return err
		}
		lines = append(lines, fmt.Sprintf("%s: %s", tui.ColorCyan(key), value))
	}

	splog.Page(strings.Join(lines, "\n"))
	splog.Newline()
	return nil
}

// ConfigGetAction prints the effective value of one key
func ConfigGetAction(splog *tui.Splog, repoRoot, key string) error {
	cfg, err := config.GetRepoConfig(repoRoot)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	value, err := cfg.Get(key)
	if err != nil {
		return err
	}
	splog.Page(value + "\n")
	return nil
}

// ConfigSetAction validates and persists one key
func ConfigSetAction(splog *tui.Splog, repoRoot, key, value string) error {
	if err := config.SetValue(repoRoot, key, value); err != nil {
		return err
	}
	splog.Info("Set %s to %s.", tui.ColorCyan(key), value)
	return nil
}
