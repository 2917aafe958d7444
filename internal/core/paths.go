package core

import (
	"os"
	"path/filepath"
)

type Paths struct {
	HomeDir    string
	DataDir    string
	ConfigDir  string
	LogFile    string
	ConfigFile string
}

var defaultPaths *Paths

func ensureDefaultPaths() {
	if defaultPaths == nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			panic(err)
		}

		defaultPaths = &Paths{
			HomeDir:    homeDir,
			DataDir:    filepath.Join(homeDir, ".local", "share", "resmon"),
			ConfigDir:  filepath.Join(homeDir, ".config", "resmon"),
			LogFile:    filepath.Join(homeDir, ".local", "share", "resmon", "resmon.log"),
			ConfigFile: filepath.Join(homeDir, ".config", "resmon", "config.yaml"),
		}

		err = os.MkdirAll(defaultPaths.DataDir, 0755)
		if err != nil {
			panic(err)
		}
	}
}

func HomeDir() string {
	ensureDefaultPaths()
	return defaultPaths.HomeDir
}

func DataDir() string {
	ensureDefaultPaths()
	return defaultPaths.DataDir
}

func LogFile() string {
	ensureDefaultPaths()
	return defaultPaths.LogFile
}

// ConfigFile is the default config location. The file is optional.
func ConfigFile() string {
	ensureDefaultPaths()
	return defaultPaths.ConfigFile
}
