package pipeline

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragify/ragify/pkg/types"
)

func embeddedFrags() []types.EmbeddedFragment {
	return []types.EmbeddedFragment{
		{
			Fragment: types.Fragment{Text: "first part", MacroIndex: 0, FragmentIndex: 0,
				TokenCount: 12, Method: types.MethodSemantic},
			Vector: []float32{1, 2, 3},
			Model:  "nomic-embed-text",
		},
		{
			Fragment: types.Fragment{Text: "second part", MacroIndex: 1, FragmentIndex: 0,
				TokenCount: 9, Method: types.MethodFallback},
			Vector: []float32{4, 5, 6},
			Model:  "nomic-embed-text",
		},
	}
}

func TestBuildPointsPayload(t *testing.T) {
	points := BuildPoints("/docs/user_guide-v2.md", "hash123", embeddedFrags())
	require.Len(t, points, 2)

	ids := map[string]bool{}
	for i, p := range points {
		_, err := uuid.Parse(p.ID)
		require.NoError(t, err, "point ids are UUIDs")
		ids[p.ID] = true

		pl := p.Payload
		assert.Equal(t, types.DocumentChunkType, pl[types.PayloadType])
		assert.Equal(t, "/docs/user_guide-v2.md", pl[types.PayloadURL])
		assert.Equal(t, "user guide v2", pl[types.PayloadTitle])
		assert.Equal(t, "hash123", pl[types.PayloadFileHash])
		assert.Equal(t, i, pl[types.PayloadFragmentIndex])
		assert.Equal(t, 2, pl[types.PayloadTotalFragments])
		assert.Equal(t, "nomic-embed-text", pl[types.PayloadModel])

		ts, err := time.Parse(time.RFC3339, pl[types.PayloadTimestamp].(string))
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
	}
	assert.Len(t, ids, 2, "each point gets a unique id")

	assert.Equal(t, "semantic", points[0].Payload[types.PayloadMethod])
	assert.Equal(t, "fallback", points[1].Payload[types.PayloadMethod])
	assert.Equal(t, 1, points[1].Payload[types.PayloadMacroIndex])
	assert.Equal(t, []float32{4, 5, 6}, points[1].Vector)
}

func TestBuildPointsEmpty(t *testing.T) {
	assert.Empty(t, BuildPoints("/x", "h", nil))
}

func TestFileTitle(t *testing.T) {
	tests := []struct{ path, want string }{
		{"/docs/user_guide.md", "user guide"},
		{"/a/b/API-Reference.pdf", "API Reference"},
		{"plain.txt", "plain"},
		{"/no/extension", "extension"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fileTitle(tt.path), tt.path)
	}
}
