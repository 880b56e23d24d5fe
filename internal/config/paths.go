package config

import (
	"os"
	"path/filepath"
)

// Paths holds the filesystem locations suggestd uses at runtime.
type Paths struct {
	// ConfigDir is the directory for configuration files (~/.config/suggestd)
	ConfigDir string

	// DataDir is the directory for data files (~/.local/share/suggestd)
	DataDir string

	// RuntimeDir is the directory for runtime files like sockets and PID files
	RuntimeDir string
}

// DefaultPaths returns the default paths based on the XDG Base Directory
// spec.
func DefaultPaths() *Paths {
	home := homeDir()

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}

	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = filepath.Join(home, ".suggestd", "run")
	} else {
		runtimeDir = filepath.Join(runtimeDir, "suggestd")
	}

	return &Paths{
		ConfigDir:  filepath.Join(configHome, "suggestd"),
		DataDir:    filepath.Join(dataHome, "suggestd"),
		RuntimeDir: runtimeDir,
	}
}

// ConfigFile returns the path to the main configuration file.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// SocketFile returns the path to the Unix domain socket.
func (p *Paths) SocketFile() string {
	return filepath.Join(p.RuntimeDir, "suggestd.sock")
}

// PIDFile returns the path to the daemon PID file.
func (p *Paths) PIDFile() string {
	return filepath.Join(p.RuntimeDir, "suggestd.pid")
}

// LogDir returns the path to the log directory.
func (p *Paths) LogDir() string {
	return filepath.Join(p.DataDir, "logs")
}

// LogFile returns the path to the daemon log file.
func (p *Paths) LogFile() string {
	return filepath.Join(p.LogDir(), "daemon.log")
}

// EnsureDirectories creates all necessary directories.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.ConfigDir,
		p.DataDir,
		p.RuntimeDir,
		p.LogDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	// Sockets and PID files live here; keep it private.
	return os.Chmod(p.RuntimeDir, 0700)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
