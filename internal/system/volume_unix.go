//go:build !windows

package system

// PrimaryVolume returns the mount point sampled for disk usage.
func PrimaryVolume() string {
	return "/"
}
