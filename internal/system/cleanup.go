package system

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
)

type undoStep struct {
	label string
	undo  func() error
}

// Rollback collects undo steps for a partially applied change to host
// state. Steps run newest first unless the change is committed.
type Rollback struct {
	mu    sync.Mutex
	steps []undoStep
}

func NewRollback() *Rollback {
	return &Rollback{}
}

// Add registers an undo step
func (r *Rollback) Add(label string, undo func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, undoStep{label: label, undo: undo})
}

// RemoveDirs registers removal of directories created by EnsureDir. The
// deepest directory is removed first.
func (r *Rollback) RemoveDirs(created []string) {
	for _, dir := range created {
		dir := dir
		r.Add("remove "+dir, func() error {
			return os.Remove(dir)
		})
	}
}

// Run undoes every pending step and forgets them.
func (r *Rollback) Run() error {
	r.mu.Lock()
	steps := r.steps
	r.steps = nil
	r.mu.Unlock()

	var errs error
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		log.Debug().Str("step", step.label).Msg("rolling back")
		if err := step.undo(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", step.label, err))
		}
	}
	return errs
}

// Commit drops pending steps so a later Run is a no-op
func (r *Rollback) Commit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = nil
}
