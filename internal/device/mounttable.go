package device

import (
	"errors"
	"io/fs"
	"os"

	"github.com/moby/sys/mountinfo"
	"github.com/rs/zerolog/log"

	"github.com/unitexe/skopos/internal/system"
)

// LiveMountTable is the kernel's view of this process's mounts
const LiveMountTable = "/proc/self/mountinfo"

// MountTable answers mount state questions from the mount table. Every call
// re-reads the table; nothing is cached.
type MountTable struct {
	path string
}

// NewMountTable reads mounts from path, a file in mountinfo format. An empty
// path or LiveMountTable queries the running system.
func NewMountTable(path string) *MountTable {
	if path == LiveMountTable {
		path = ""
	}
	return &MountTable{path: path}
}

func (t *MountTable) mounts(filter mountinfo.FilterFunc) ([]*mountinfo.Info, error) {
	if t.path == "" {
		mounts, err := mountinfo.GetMounts(filter)
		if err != nil {
			return nil, system.ResourceError("read mount table", err)
		}
		return mounts, nil
	}

	f, err := os.Open(t.path)
	if err != nil {
		return nil, system.ResourceError("read mount table", err)
	}
	defer f.Close()

	mounts, err := mountinfo.GetMountsFromReader(f, filter)
	if err != nil {
		return nil, system.ResourceError("parse mount table", err)
	}
	return mounts, nil
}

// sourceFilter keeps the mounts whose source is source
func sourceFilter(source string) mountinfo.FilterFunc {
	return func(m *mountinfo.Info) (skip, stop bool) {
		return m.Source != source, false
	}
}

// MountsOf returns the mounts of source in table order
func (t *MountTable) MountsOf(source string) ([]*mountinfo.Info, error) {
	return t.mounts(sourceFilter(source))
}

// Mounted reports whether path is a mount point. A path that does not exist
// is not mounted.
func (t *MountTable) Mounted(path string) (bool, error) {
	if t.path == "" {
		mounted, err := mountinfo.Mounted(path)
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, system.ResourceError("check mount point", err)
		}
		return mounted, nil
	}

	mounts, err := t.mounts(mountinfo.SingleEntryFilter(path))
	if err != nil {
		return false, err
	}
	return len(mounts) > 0, nil
}

// Lookup reports whether devicePath is mounted and where, using the first
// matching record. An unreadable table reads as not mounted.
func (t *MountTable) Lookup(devicePath string) (bool, string) {
	mounts, err := t.MountsOf(devicePath)
	if err != nil {
		log.Debug().Err(err).Str("device", devicePath).Msg("mount table unavailable")
		return false, ""
	}
	if len(mounts) == 0 {
		return false, ""
	}
	return true, mounts[0].Mountpoint
}

// Describe resolves the mount state of every path against one reading of
// the table.
func (t *MountTable) Describe(paths []string) []Device {
	mounts, err := t.mounts(nil)
	if err != nil {
		log.Debug().Err(err).Msg("mount table unavailable")
	}

	first := make(map[string]string, len(mounts))
	for _, m := range mounts {
		if _, ok := first[m.Source]; !ok {
			first[m.Source] = m.Mountpoint
		}
	}

	devices := make([]Device, 0, len(paths))
	for _, p := range paths {
		d := Device{Path: p}
		if target, ok := first[p]; ok {
			d.Mounted = true
			d.MountPoint = target
		}
		devices = append(devices, d)
	}
	return devices
}
