package device

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"github.com/unitexe/skopos/internal/system"
)

// EnumeratorConfig locates the device namespace and the per-device
// attributes.
type EnumeratorConfig struct {
	DevDir           string
	SysBlockDir      string
	WholeDiskPattern string
	// PartialResults keeps going past per-device failures and reports them
	// alongside the devices that could be read.
	PartialResults bool
}

// Enumerator scans the device namespace for removable whole disks and their
// partitions.
type Enumerator struct {
	devDir      string
	sysBlockDir string
	wholeDisk   *regexp.Regexp
	partial     bool
}

// Enumeration is a single immutable snapshot of the device namespace.
type Enumeration struct {
	Paths []string
	// Errors holds the per-device failures skipped in partial mode. It is
	// always nil in strict mode.
	Errors error
}

// NewEnumerator creates a new enumerator
func NewEnumerator(cfg EnumeratorConfig) (*Enumerator, error) {
	re, err := regexp.Compile(cfg.WholeDiskPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid whole disk pattern %q: %w", cfg.WholeDiskPattern, err)
	}
	return &Enumerator{
		devDir:      cfg.DevDir,
		sysBlockDir: cfg.SysBlockDir,
		wholeDisk:   re,
		partial:     cfg.PartialResults,
	}, nil
}

// List returns the paths of every removable whole disk followed by its
// partitions. Ordering between calls is not guaranteed.
func (e *Enumerator) List() (Enumeration, error) {
	entries, err := os.ReadDir(e.devDir)
	if err != nil {
		return Enumeration{}, system.ResourceError("read device namespace", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}

	var result Enumeration
	for _, name := range names {
		if !e.wholeDisk.MatchString(name) {
			continue
		}

		removable, err := e.isRemovable(name)
		if err != nil {
			if !e.partial {
				return Enumeration{}, err
			}
			log.Warn().Err(err).Str("device", name).Msg("skipping unreadable device")
			result.Errors = multierr.Append(result.Errors, err)
			continue
		}
		if !removable {
			continue
		}

		result.Paths = append(result.Paths, filepath.Join(e.devDir, name))
		result.Paths = append(result.Paths, e.partitions(name, names)...)
	}

	return result, nil
}

func (e *Enumerator) isRemovable(name string) (bool, error) {
	attr := filepath.Join(e.sysBlockDir, name, "removable")
	data, err := os.ReadFile(attr)
	if err != nil {
		return false, system.ResourceError("read removable attribute", err)
	}
	return strings.TrimSpace(string(data)) == "1", nil
}

func (e *Enumerator) partitions(disk string, names []string) []string {
	var parts []string
	for _, name := range names {
		if strings.HasPrefix(name, disk) && len(name) > len(disk) {
			parts = append(parts, filepath.Join(e.devDir, name))
		}
	}
	return parts
}
