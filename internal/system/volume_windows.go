//go:build windows

package system

import "os"

// PrimaryVolume returns the system drive sampled for disk usage.
func PrimaryVolume() string {
	drive := os.Getenv("SystemDrive")
	if drive == "" {
		drive = "C:"
	}
	return drive + `\`
}
