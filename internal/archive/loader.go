package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/unitexe/skopos/internal/system"
)

// LoadResult is the outcome of pushing an archive into the registry
type LoadResult struct {
	Succeeded    bool
	Reference    string
	ErrorMessage string
	ErrorKind    system.ErrorKind
}

// InspectResult carries the inspect tool's raw output. Stdout is opaque.
type InspectResult struct {
	Succeeded bool
	Stdout    string
	Stderr    string
	ErrorKind system.ErrorKind
}

// Loader pushes archives into a registry and retrieves their metadata
type Loader struct {
	invoker   system.Invoker
	registry  string
	cataloger *Cataloger
}

// NewLoader creates a loader targeting registry (host:port)
func NewLoader(invoker system.Invoker, registry string, cataloger *Cataloger) *Loader {
	return &Loader{invoker: invoker, registry: registry, cataloger: cataloger}
}

// Registry is the destination endpoint of every load
func (l *Loader) Registry() string {
	return l.registry
}

// Load copies the archive at path to <registry>/<name>:<tag>. Name and tag are
// not validated here; the copy capability rejects malformed references. When
// expectedHash is set the archive is re-hashed and must match before the copy
// starts.
func (l *Loader) Load(ctx context.Context, path, name, tag, expectedHash string) LoadResult {
	reference := fmt.Sprintf("%s/%s:%s", l.registry, name, tag)
	fail := func(err error) LoadResult {
		log.Error().Err(err).Str("path", path).Str("reference", reference).Msg("loading image failed")
		return LoadResult{Reference: reference, ErrorMessage: err.Error(), ErrorKind: system.KindOf(err)}
	}

	if _, err := system.StatRegular(path); err != nil {
		return fail(system.ResourceError("load archive", err))
	}

	if expectedHash != "" {
		if _, err := l.cataloger.Verify(path, expectedHash); err != nil {
			return fail(err)
		}
	}

	res, err := l.invoker.Invoke(ctx, system.CapabilityCopyArchive, system.Vars{
		"archive":  path,
		"registry": l.registry,
		"image":    name,
		"tag":      tag,
	})
	if err == nil {
		err = res.Err(system.CapabilityCopyArchive)
	}
	if err != nil {
		return fail(err)
	}

	log.Info().Str("path", path).Str("reference", reference).Msg("loaded image archive")
	return LoadResult{Succeeded: true, Reference: reference}
}

// Inspect returns the inspect tool's metadata dump for the archive verbatim
func (l *Loader) Inspect(ctx context.Context, path string) InspectResult {
	res, err := l.invoker.Invoke(ctx, system.CapabilityInspectArchive, system.Vars{"archive": path})
	if err != nil {
		return InspectResult{Stderr: err.Error(), ErrorKind: system.KindOf(err)}
	}
	if !res.Success {
		stderr := string(res.Stderr)
		if strings.TrimSpace(stderr) == "" {
			stderr = res.Err(system.CapabilityInspectArchive).Error()
		}
		log.Warn().Str("path", path).Str("stderr", stderr).Msg("inspect failed")
		return InspectResult{Stderr: stderr, ErrorKind: system.KindExecutionFailure}
	}
	return InspectResult{Succeeded: true, Stdout: string(res.Stdout)}
}
