package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteTrace writes a replay trace of frames captured frames, each showing
// one face matching identity at distance. It returns the trace path.
func WriteTrace(t testing.TB, dir string, frames int, identity string, distance float64) string {
	t.Helper()

	line := fmt.Sprintf(`{"faces":[{"box":[40,40,120,120],"matches":[{"id":%q,"distance":%g}]}]}`, identity, distance)
	var b strings.Builder
	for range frames {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	path := filepath.Join(dir, "trace.jsonl")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
