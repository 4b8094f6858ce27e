package main

import (
	"fmt"
	"strings"

	"github.com/twinlayout/sceneedit/internal/cache"
	"github.com/twinlayout/sceneedit/internal/config"
	"github.com/twinlayout/sceneedit/internal/storage"
	"github.com/twinlayout/sceneedit/internal/storage/memory"
	pgstorage "github.com/twinlayout/sceneedit/internal/storage/postgres"
	sqlitestorage "github.com/twinlayout/sceneedit/internal/storage/sqlite"
	wsstorage "github.com/twinlayout/sceneedit/internal/storage/websocket"
)

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		Logger.Info("Postgres storage backend selected", "host", storageCfg.DB.Host, "database", storageCfg.DB.Database)
		return pgstorage.New(pgstorage.Dependencies{
			Config:     storageCfg.DB,
			Rows:       cache.NewRowCache(),
			Scenes:     cache.NewSceneCache(),
			LogManager: SlogManager,
			Logger:     ZLogger,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     storageCfg.SQLite.DumpPath,
		}, cache.NewRowCache(), cache.NewSceneCache(), SlogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend selected", "dumpPath", storageCfg.SQLite.DumpPath)
		return backend, nil

	case "websocket":
		wsURL := httpToWS(storageCfg.Endpoint)
		Logger.Info("WebSocket storage backend selected", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: storageCfg.Secret,
		}), nil

	case "memory", "":
		Logger.Info("Memory storage backend selected", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
