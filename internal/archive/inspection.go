package archive

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"
)

// ImageInspection mirrors the JSON printed by `skopeo inspect`. It is only
// used to render summaries; the service passes inspect output through as-is.
type ImageInspection struct {
	Name          string `json:",omitempty"`
	Tag           string `json:",omitempty"`
	Digest        digest.Digest
	RepoTags      []string
	Created       *time.Time
	DockerVersion string
	Labels        map[string]string
	Architecture  string
	Os            string
	Layers        []string
}

// ParseInspection decodes inspect output
func ParseInspection(raw string) (*ImageInspection, error) {
	var inspection ImageInspection
	if err := json.Unmarshal([]byte(raw), &inspection); err != nil {
		return nil, fmt.Errorf("failed to parse inspect output: %w", err)
	}
	return &inspection, nil
}
