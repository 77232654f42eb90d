package archive

import (
	"github.com/shirou/gopsutil/v3/disk"
)

// SpaceFunc reports the free bytes available at path.
type SpaceFunc func(path string) (uint64, error)

// DiskSpace reports the free space of the volume holding path.
func DiskSpace(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}
