// Package mount drives device mount and unmount through the mount
// capabilities, checking live mount state before mutating it.
package mount

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/moby/sys/mountinfo"
	"github.com/rs/zerolog/log"

	"github.com/unitexe/skopos/internal/system"
)

// Outcome is the result of a mount or unmount attempt. AlreadyInState marks a
// success where nothing had to change.
type Outcome struct {
	Succeeded      bool
	AlreadyInState bool
	MountPoint     string
	ErrorMessage   string
	ErrorKind      system.ErrorKind
}

func failed(mountPoint string, err error) Outcome {
	return Outcome{
		MountPoint:   mountPoint,
		ErrorMessage: err.Error(),
		ErrorKind:    system.KindOf(err),
	}
}

// StateReader answers mount state queries against the live mount table
type StateReader interface {
	Mounted(path string) (bool, error)
	MountsOf(source string) ([]*mountinfo.Info, error)
}

// Manager handles device mount operations. Calls touching the same device or
// mount point are serialized within the process.
type Manager struct {
	invoker           system.Invoker
	state             StateReader
	defaultMountPoint string
	locks             *system.KeyedMutex
}

// NewManager creates a new mount manager
func NewManager(invoker system.Invoker, state StateReader, defaultMountPoint string) *Manager {
	return &Manager{
		invoker:           invoker,
		state:             state,
		defaultMountPoint: defaultMountPoint,
		locks:             system.NewKeyedMutex(),
	}
}

// DefaultMountPoint is used whenever a caller leaves the mount point empty
func (m *Manager) DefaultMountPoint() string {
	return m.defaultMountPoint
}

func (m *Manager) resolve(mountPoint string) string {
	if mountPoint == "" {
		mountPoint = m.defaultMountPoint
	}
	return filepath.Clean(mountPoint)
}

// canonical follows symlinks so paths compare equal to mount table entries
func canonical(path string) string {
	resolved, err := system.ResolvePath(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("could not resolve path")
		return path
	}
	return resolved
}

// Mount mounts devicePath on mountPoint, creating the directory chain if
// needed. Directories created here are removed again if the mount fails.
func (m *Manager) Mount(ctx context.Context, devicePath, mountPoint string) Outcome {
	mountPoint = m.resolve(mountPoint)
	if devicePath == "" {
		return failed(mountPoint, system.MalformedInput("mount", "device path is required"))
	}

	unlock := m.locks.Lock("dev:"+canonical(devicePath), "mnt:"+canonical(mountPoint))
	defer unlock()

	if out, done := m.checkMount(devicePath, mountPoint); done {
		return out
	}

	rollback := system.NewRollback()
	defer func() {
		if err := rollback.Run(); err != nil {
			log.Warn().Err(err).Str("mount_point", mountPoint).Msg("failed to remove mount point")
		}
	}()

	created, err := system.EnsureDir(mountPoint, 0755)
	if err != nil {
		return failed(mountPoint, system.ResourceError("create mount point", err))
	}
	rollback.RemoveDirs(created)

	res, err := m.invoker.Invoke(ctx, system.CapabilityMount, system.Vars{
		"device":     devicePath,
		"mountpoint": mountPoint,
	})
	if err == nil {
		err = res.Err(system.CapabilityMount)
	}
	if err != nil {
		log.Error().Err(err).Str("device", devicePath).Str("mount_point", mountPoint).Msg("mount failed")
		return failed(mountPoint, err)
	}

	rollback.Commit()
	log.Info().Str("device", devicePath).Str("mount_point", mountPoint).Msg("mounted device")
	return Outcome{Succeeded: true, MountPoint: mountPoint}
}

// checkMount compares the request with the current mount state. done is
// true when no mount should be attempted.
func (m *Manager) checkMount(devicePath, mountPoint string) (out Outcome, done bool) {
	target := canonical(mountPoint)

	mounts, err := m.state.MountsOf(canonical(devicePath))
	if err != nil {
		log.Warn().Err(err).Msg("mount state unknown, attempting mount anyway")
		return Outcome{}, false
	}
	for _, mi := range mounts {
		if mi.Mountpoint == target {
			return Outcome{Succeeded: true, AlreadyInState: true, MountPoint: mountPoint}, true
		}
	}
	if len(mounts) > 0 {
		return failed(mountPoint, system.NewError(system.KindConflictingState, "mount",
			fmt.Sprintf("%s is already mounted at %s", devicePath, mounts[0].Mountpoint), nil)), true
	}

	busy, err := m.state.Mounted(target)
	if err != nil {
		log.Warn().Err(err).Msg("mount state unknown, attempting mount anyway")
		return Outcome{}, false
	}
	if busy {
		return failed(mountPoint, system.NewError(system.KindConflictingState, "mount",
			fmt.Sprintf("%s is already a mount point", mountPoint), nil)), true
	}
	return Outcome{}, false
}

// Unmount unmounts target, which may be a mount point or a mounted device.
// A target that is neither is reported as already unmounted without
// invoking the capability.
func (m *Manager) Unmount(ctx context.Context, target string) Outcome {
	target = m.resolve(target)
	resolved := canonical(target)

	unlock := m.locks.Lock("dev:"+resolved, "mnt:"+resolved)
	defer unlock()

	mountPoint, mounted := m.unmountTarget(target, resolved)
	if !mounted {
		return Outcome{Succeeded: true, AlreadyInState: true, MountPoint: target}
	}

	res, err := m.invoker.Invoke(ctx, system.CapabilityUnmount, system.Vars{"mountpoint": target})
	if err == nil {
		err = res.Err(system.CapabilityUnmount)
	}
	if err != nil {
		log.Error().Err(err).Str("target", target).Msg("unmount failed")
		return failed(mountPoint, err)
	}

	log.Info().Str("target", target).Str("mount_point", mountPoint).Msg("unmounted device")
	return Outcome{Succeeded: true, MountPoint: mountPoint}
}

// unmountTarget finds the mount point behind target. When the state cannot be
// read the target is assumed mounted so the capability decides.
func (m *Manager) unmountTarget(target, resolved string) (string, bool) {
	mounted, err := m.state.Mounted(resolved)
	if err != nil {
		log.Warn().Err(err).Msg("mount state unknown, attempting unmount anyway")
		return target, true
	}
	if mounted {
		return target, true
	}

	mounts, err := m.state.MountsOf(resolved)
	if err != nil {
		log.Warn().Err(err).Msg("mount state unknown, attempting unmount anyway")
		return target, true
	}
	if len(mounts) > 0 {
		return mounts[0].Mountpoint, true
	}
	return target, false
}
