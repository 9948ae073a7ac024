package pipeline

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ragify/ragify/pkg/types"
)

// BuildPoints converts a file's embedded fragments into store points. Every
// point gets a fresh UUID, the full provenance payload, and the file hash the
// dedup stage queries on.
func BuildPoints(path, hash string, frags []types.EmbeddedFragment) []types.Point {
	now := time.Now().UTC().Format(time.RFC3339)
	title := fileTitle(path)
	total := len(frags)

	points := make([]types.Point, 0, total)
	for i, f := range frags {
		points = append(points, types.Point{
			ID:     uuid.NewString(),
			Vector: f.Vector,
			Payload: map[string]any{
				types.PayloadType:           types.DocumentChunkType,
				types.PayloadText:           f.Text,
				types.PayloadURL:            path,
				types.PayloadTitle:          title,
				types.PayloadTimestamp:      now,
				types.PayloadFragmentIndex:  i,
				types.PayloadTotalFragments: total,
				types.PayloadMacroIndex:     f.MacroIndex,
				types.PayloadTokenCount:     f.TokenCount,
				types.PayloadMethod:         string(f.Method),
				types.PayloadModel:          f.Model,
				types.PayloadFileHash:       hash,
			},
		})
	}
	return points
}

// fileTitle derives a human-readable title from the file name.
func fileTitle(path string) string {
	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	title = strings.NewReplacer("_", " ", "-", " ").Replace(title)
	return strings.TrimSpace(title)
}
