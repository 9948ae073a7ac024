package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Stats aggregates run counters. Counter fields use atomics and the failure
// list is mutex-guarded, so workers update one Stats concurrently.
type Stats struct {
	FilesScanned      atomic.Int64
	FilesDone         atomic.Int64
	FilesSkipped      atomic.Int64
	FilesFailed       atomic.Int64
	FragmentsCreated  atomic.Int64
	FragmentsEmbedded atomic.Int64
	FragmentsDropped  atomic.Int64
	PointsUploaded    atomic.Int64

	start time.Time

	mu       sync.Mutex
	failures []FileResult
}

// NewStats starts the run clock.
func NewStats() *Stats {
	return &Stats{start: time.Now()}
}

// Record folds one terminal file result into the counters.
func (s *Stats) Record(res FileResult) {
	switch res.State {
	case StateDone:
		s.FilesDone.Add(1)
	case StateSkipped:
		s.FilesSkipped.Add(1)
	case StateFailed:
		s.FilesFailed.Add(1)
		s.mu.Lock()
		s.failures = append(s.failures, res)
		s.mu.Unlock()
	}
}

// Failures returns the failed results sorted by path.
func (s *Stats) Failures() []FileResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FileResult, len(s.failures))
	copy(out, s.failures)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Elapsed returns time since the run started.
func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.start)
}

// Summary is the serializable snapshot of a finished run.
type Summary struct {
	FilesScanned      int64        `json:"files_scanned"`
	FilesDone         int64        `json:"files_done"`
	FilesSkipped      int64        `json:"files_skipped"`
	FilesFailed       int64        `json:"files_failed"`
	FragmentsCreated  int64        `json:"fragments_created"`
	FragmentsEmbedded int64        `json:"fragments_embedded"`
	FragmentsDropped  int64        `json:"fragments_dropped"`
	PointsUploaded    int64        `json:"points_uploaded"`
	ElapsedSeconds    float64      `json:"elapsed_seconds"`
	SuccessRate       float64      `json:"success_rate"`
	FragmentsPerFile  float64      `json:"fragments_per_file"`
	FilesPerSecond    float64      `json:"files_per_second"`
	Failures          []FileResult `json:"failures,omitempty"`
}

// Snapshot computes the derived metrics from the current counters.
func (s *Stats) Snapshot() Summary {
	sum := Summary{
		FilesScanned:      s.FilesScanned.Load(),
		FilesDone:         s.FilesDone.Load(),
		FilesSkipped:      s.FilesSkipped.Load(),
		FilesFailed:       s.FilesFailed.Load(),
		FragmentsCreated:  s.FragmentsCreated.Load(),
		FragmentsEmbedded: s.FragmentsEmbedded.Load(),
		FragmentsDropped:  s.FragmentsDropped.Load(),
		PointsUploaded:    s.PointsUploaded.Load(),
		ElapsedSeconds:    s.Elapsed().Seconds(),
		Failures:          s.Failures(),
	}

	processed := sum.FilesDone + sum.FilesFailed
	if processed > 0 {
		sum.SuccessRate = float64(sum.FilesDone) / float64(processed) * 100
	}
	if sum.FilesDone > 0 {
		sum.FragmentsPerFile = float64(sum.PointsUploaded) / float64(sum.FilesDone)
	}
	if sum.ElapsedSeconds > 0 {
		sum.FilesPerSecond = float64(processed+sum.FilesSkipped) / sum.ElapsedSeconds
	}
	return sum
}

// RenderReport formats a summary as "markdown" or "json".
func RenderReport(sum Summary, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(sum, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal report: %w", err)
		}
		return string(data), nil
	case "markdown", "":
		return renderMarkdown(sum), nil
	default:
		return "", fmt.Errorf("unknown report format %q", format)
	}
}

// WriteReport renders and writes the report file.
func WriteReport(sum Summary, format, path string) error {
	out, err := RenderReport(sum, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func renderMarkdown(sum Summary) string {
	var b strings.Builder
	b.WriteString("# Indexing Report\n\n")
	b.WriteString("## Files\n\n")
	fmt.Fprintf(&b, "- Scanned: %d\n", sum.FilesScanned)
	fmt.Fprintf(&b, "- Indexed: %d\n", sum.FilesDone)
	fmt.Fprintf(&b, "- Skipped (already indexed): %d\n", sum.FilesSkipped)
	fmt.Fprintf(&b, "- Failed: %d\n", sum.FilesFailed)
	fmt.Fprintf(&b, "- Success rate: %.1f%%\n\n", sum.SuccessRate)

	b.WriteString("## Fragments\n\n")
	fmt.Fprintf(&b, "- Created: %d\n", sum.FragmentsCreated)
	fmt.Fprintf(&b, "- Embedded: %d\n", sum.FragmentsEmbedded)
	fmt.Fprintf(&b, "- Dropped: %d\n", sum.FragmentsDropped)
	fmt.Fprintf(&b, "- Uploaded points: %d\n", sum.PointsUploaded)
	fmt.Fprintf(&b, "- Fragments per indexed file: %.1f\n\n", sum.FragmentsPerFile)

	b.WriteString("## Timing\n\n")
	fmt.Fprintf(&b, "- Elapsed: %.1fs\n", sum.ElapsedSeconds)
	fmt.Fprintf(&b, "- Files per second: %.2f\n", sum.FilesPerSecond)

	if len(sum.Failures) > 0 {
		b.WriteString("\n## Failures\n\n")
		for _, f := range sum.Failures {
			fmt.Fprintf(&b, "- `%s`: %s\n", f.Path, f.Reason)
		}
	}
	return b.String()
}
