// Package archive discovers, catalogs, inspects and loads container image
// archives.
package archive

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/unitexe/skopos/internal/system"
)

// Validator decides whether a file is a structurally valid image archive.
type Validator interface {
	Validate(ctx context.Context, path string) bool
}

// CapabilityValidator delegates validation to the inspect capability: a zero
// exit means valid, anything else (including a missing tool) means invalid.
type CapabilityValidator struct {
	invoker system.Invoker
}

// NewCapabilityValidator creates a validator backed by invoker
func NewCapabilityValidator(invoker system.Invoker) *CapabilityValidator {
	return &CapabilityValidator{invoker: invoker}
}

func (v *CapabilityValidator) Validate(ctx context.Context, path string) bool {
	res, err := v.invoker.Invoke(ctx, system.CapabilityInspectArchive, system.Vars{"archive": path})
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("archive validation could not run")
		return false
	}
	return res.Success
}

// Scanner lists the valid archives in a directory
type Scanner struct {
	validator Validator
	extension string
}

// NewScanner creates a scanner accepting files with the given extension
func NewScanner(validator Validator, extension string) *Scanner {
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return &Scanner{validator: validator, extension: extension}
}

// Discover lists dir non-recursively and returns the candidates the validator
// accepts. Rejected candidates are dropped silently.
func (s *Scanner) Discover(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, system.ResourceError("read archive directory", err)
	}

	var archives []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, system.NewError(system.KindCanceled, "discover archives", "canceled", err)
		}
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != s.extension || strings.TrimSuffix(name, s.extension) == "" {
			continue
		}

		candidate := filepath.Join(dir, name)
		if !s.validator.Validate(ctx, candidate) {
			log.Debug().Str("path", candidate).Msg("rejected archive candidate")
			continue
		}
		archives = append(archives, candidate)
	}

	return archives, nil
}
