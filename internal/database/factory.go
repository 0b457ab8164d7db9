package database

import (
	"fmt"
	"os"
	"path/filepath"

	"nh-go/internal/config"
	"nh-go/internal/nh"
)

// NewHistoryFromConfig creates a History implementation based on the history config type.
func NewHistoryFromConfig(cfg config.HistoryConfig) (nh.History, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite history")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
		return NewSQLiteHistory(filepath.Join(cfg.DataDir, "history.db"))
	case "memory":
		return NewSQLiteHistory(":memory:")
	case "none", "":
		return nh.NopHistory{}, nil
	default:
		return nil, fmt.Errorf("unknown history type: %s", cfg.Type)
	}
}
