package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rollcall/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckReadableFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "model.t7")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "file", path: f, want: true},
		{name: "missing", path: filepath.Join(dir, "nope"), want: false},
		{name: "directory", path: dir, want: false},
		{name: "empty", path: " ", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckReadableFile("model", tt.path); got.Passed != tt.want {
				t.Fatalf("expected passed=%v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCheckLedger(t *testing.T) {
	dir := t.TempDir()
	if got := CheckLedger("json", filepath.Join(dir, "attendance.json")); !got.Passed || !strings.Contains(got.Detail, "will be created") {
		t.Fatalf("expected new ledger to pass, got %+v", got)
	}
	existing := filepath.Join(dir, "existing.json")
	if err := os.WriteFile(existing, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := CheckLedger("json", existing); !got.Passed {
		t.Fatalf("expected existing ledger to pass, got %+v", got)
	}
	if got := CheckLedger("json", filepath.Join(dir, "missing", "a.json")); got.Passed {
		t.Fatalf("expected missing parent to fail, got %+v", got)
	}
}

func TestCheckManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "alice.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	manifest := filepath.Join(dir, "gallery.yaml")
	body := `identities:
  - id: ALICE
    images: [alice.jpg]
  - id: BOB
    images: [bob.jpg]
  - id: CAROL
    embedding: [0.1, 0.2]
`
	if err := os.WriteFile(manifest, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	result := CheckManifest(manifest)
	if !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
	if !strings.Contains(result.Detail, "2/3 usable") || !strings.Contains(result.Detail, "BOB") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}

	if err := os.WriteFile(manifest, []byte("identities: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckManifest(manifest); result.Passed {
		t.Fatalf("expected empty manifest to fail, got %+v", result)
	}
}

func TestProbeCamerasMissingDevice(t *testing.T) {
	probe := ProbeCameras([]int{987})
	if len(probe.Absent) != 1 || probe.Absent[0] != "/dev/video987" {
		t.Fatalf("unexpected probe %+v", probe)
	}
	if probe.Result().Passed {
		t.Fatal("expected camera check to fail without devices")
	}
}

func TestRunAll(t *testing.T) {
	if results := RunAll(nil, true); results != nil {
		t.Fatal("expected nil results for nil config")
	}

	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Ledger.Path = filepath.Join(cfg.Paths.DataDir, "attendance.json")

	results := RunAll(&cfg, false)
	if len(results) != 3 {
		t.Fatalf("expected 3 results for replay, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}

	cfg.Gallery.Manifest = filepath.Join(t.TempDir(), "missing.yaml")
	live := RunAll(&cfg, true)
	if len(live) != 7 {
		t.Fatalf("expected 7 results for live, got %d", len(live))
	}
	if failed := Failed(live); len(failed) == 0 {
		t.Fatal("expected live checks to fail without manifest")
	}
}
