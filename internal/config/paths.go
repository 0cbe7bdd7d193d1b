package config

import (
	"os"
	"path/filepath"
)

// Paths locates the tool's data directory and the files inside it.
type Paths struct {
	DataDir    string
	ConfigPath string
	DBPath     string
	LogPath    string
}

func NewPaths() (*Paths, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	dataDir := getEnv("ENGINECTL_DATA_DIR", filepath.Join(homeDir, ".enginectl"))

	return &Paths{
		DataDir:    dataDir,
		ConfigPath: filepath.Join(dataDir, "config.yaml"),
		DBPath:     filepath.Join(dataDir, "history.db"),
		LogPath:    filepath.Join(dataDir, "enginectl.log"),
	}, nil
}

func (p *Paths) EnsureDataDir() error {
	return os.MkdirAll(p.DataDir, 0755)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
