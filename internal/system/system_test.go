package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.0 KB", FormatSize(1024))
	assert.Equal(t, "1.5 MB", FormatSize(1536*1024))
}

func TestEnsureDir(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "mnt", "usb")

	created, err := EnsureDir(target, 0o755)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "mnt"), target}, created)
	assert.DirExists(t, target)

	created, err = EnsureDir(target, 0o755)
	require.NoError(t, err)
	assert.Empty(t, created)

	file := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = EnsureDir(filepath.Join(file, "child"), 0o755)
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	media := filepath.Join(root, "media")
	require.NoError(t, os.MkdirAll(filepath.Join(media, "usb"), 0o755))
	require.NoError(t, os.Symlink(media, filepath.Join(root, "mnt")))

	got, err := ResolvePath(filepath.Join(root, "mnt", "usb"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(media, "usb"), got)

	got, err = ResolvePath(filepath.Join(root, "mnt", "new", "dir"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(media, "new", "dir"), got)

	got, err = ResolvePath(filepath.Join(root, "absent", "..", "media"))
	require.NoError(t, err)
	assert.Equal(t, media, got)
}

func TestStatRegular(t *testing.T) {
	dir := t.TempDir()
	_, err := StatRegular(dir)
	assert.Error(t, err)

	file := filepath.Join(dir, "a.tar")
	require.NoError(t, os.WriteFile(file, []byte("abc"), 0o644))
	info, err := StatRegular(file)
	require.NoError(t, err)
	assert.EqualValues(t, 3, info.Size())
}

func TestRollbackRunsNewestFirst(t *testing.T) {
	var order []int
	r := NewRollback()
	for i := 0; i < 3; i++ {
		i := i
		r.Add(fmt.Sprintf("step %d", i), func() error {
			order = append(order, i)
			if i == 1 {
				return errors.New("boom")
			}
			return nil
		})
	}

	err := r.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1: boom")
	assert.Equal(t, []int{2, 1, 0}, order)
	assert.NoError(t, r.Run())

	r.Add("late", func() error { return errors.New("should not run") })
	r.Commit()
	assert.NoError(t, r.Run())
}

func TestRollbackRemoveDirs(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a", "b")
	created, err := EnsureDir(target, 0o755)
	require.NoError(t, err)

	r := NewRollback()
	r.RemoveDirs(created)
	require.NoError(t, r.Run())

	_, err = os.Stat(filepath.Join(root, "a"))
	assert.True(t, os.IsNotExist(err))
	assert.DirExists(t, root)
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	k := NewKeyedMutex()

	var mu sync.Mutex
	active, maxActive := 0, 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("mnt:/mnt/usb", "dev:/dev/sda1")
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
	assert.Empty(t, k.locks)
}

func TestKeyedMutexDuplicateKeys(t *testing.T) {
	k := NewKeyedMutex()
	unlock := k.Lock("a", "a")
	unlock()
	assert.Empty(t, k.locks)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	wrapped := fmt.Errorf("outer: %w", NewError(KindTimeout, "mount", "timed out", nil))
	assert.Equal(t, KindTimeout, KindOf(wrapped))
	assert.Equal(t, KindResourceAccess, KindOf(os.ErrNotExist))
}
