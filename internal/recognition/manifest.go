package recognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"rollcall/internal/logging"
)

// Manifest declares the reference gallery.
//
//	strategy: averaged
//	metric: euclidean
//	identities:
//	  - id: alice
//	    images: [alice.jpg]
//	  - id: bob
//	    embedding: [0.01, -0.2, ...]
type Manifest struct {
	Strategy   string          `yaml:"strategy,omitempty"`
	Metric     string          `yaml:"metric,omitempty"`
	BaseDir    string          `yaml:"base_dir,omitempty"`
	Identities []ManifestEntry `yaml:"identities"`

	path string
}

// ManifestEntry declares one identity. A precomputed embedding takes
// precedence over images.
type ManifestEntry struct {
	ID        string    `yaml:"id"`
	Images    []string  `yaml:"images,omitempty"`
	Embedding []float32 `yaml:"embedding,omitempty,flow"`
}

// LoadManifest reads and parses a gallery manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gallery manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse gallery manifest %s: %w", path, err)
	}
	m.path = path
	return &m, nil
}

// Save writes the manifest back as YAML.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode gallery manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write gallery manifest: %w", err)
	}
	return nil
}

// ImagePaths resolves an entry's images against base_dir, or the manifest's
// own directory when base_dir is empty.
func (m *Manifest) ImagePaths(entry ManifestEntry) []string {
	base := strings.TrimSpace(m.BaseDir)
	if base == "" && m.path != "" {
		base = filepath.Dir(m.path)
	} else if base != "" && !filepath.IsAbs(base) && m.path != "" {
		base = filepath.Join(filepath.Dir(m.path), base)
	}
	paths := make([]string, 0, len(entry.Images))
	for _, img := range entry.Images {
		img = strings.TrimSpace(img)
		if img == "" {
			continue
		}
		if !filepath.IsAbs(img) && base != "" {
			img = filepath.Join(base, img)
		}
		paths = append(paths, img)
	}
	return paths
}

// Embedder produces embedding variants for a reference image. The first
// variant is always the unmodified image; augmented variants follow when
// augment is true.
type Embedder interface {
	Embed(ctx context.Context, imagePath string, augment bool) ([][]float32, error)
}

// ErrNoReferenceSource reports an entry without an embedding or images.
var ErrNoReferenceSource = errors.New("no embedding or images declared")

// MissingReference records an identity that could not be loaded.
type MissingReference struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// LoadReport summarises gallery loading.
type LoadReport struct {
	Declared int                `json:"declared"`
	Loaded   int                `json:"loaded"`
	Missing  []MissingReference `json:"missing,omitempty"`
}

// Degraded reports whether some declared identities are absent.
func (r LoadReport) Degraded() bool { return r.Loaded < r.Declared }

// BuildGallery constructs the gallery from a manifest. Identities whose
// reference cannot be produced are left out and reported; they never fail the
// load. The strategy argument overrides the manifest's own when non-empty.
func BuildGallery(ctx context.Context, m *Manifest, strategy Strategy, metric Metric, embedder Embedder, logger *slog.Logger) (*Gallery, LoadReport) {
	logger = logging.NewComponentLogger(logger, "gallery")
	if m == nil {
		return NewGallery(metric), LoadReport{}
	}
	if strategy == "" {
		strategy, _ = ParseStrategy(m.Strategy)
	}
	if metric == "" {
		metric, _ = ParseMetric(m.Metric)
	}

	report := LoadReport{Declared: len(m.Identities)}
	refs := make([]ReferenceIdentity, 0, len(m.Identities))
	for _, entry := range m.Identities {
		if ctx.Err() != nil {
			break
		}
		id := NormalizeLabel(entry.ID)
		embedding, err := buildReference(ctx, m, entry, strategy, embedder)
		if id == "" {
			err = errors.New("empty identity label")
		}
		if err != nil {
			report.Missing = append(report.Missing, MissingReference{ID: entry.ID, Reason: err.Error()})
			logging.WarnWithContext(logger, "reference identity not loaded", "gallery_reference_missing",
				logging.String(logging.FieldIdentity, entry.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the reference image contains exactly one clear face"),
				logging.String(logging.FieldImpact, "identity will never be recognised"),
			)
			continue
		}
		refs = append(refs, ReferenceIdentity{ID: id, Embedding: embedding})
	}

	gallery := NewGallery(metric, refs...)
	report.Loaded = gallery.Len()
	logger.Info("gallery loaded",
		logging.String(logging.FieldEventType, "gallery_loaded"),
		logging.Int("loaded", report.Loaded),
		logging.Int("declared", report.Declared),
		logging.String("strategy", string(strategy)),
		logging.String("metric", string(metric)),
	)
	return gallery, report
}

func buildReference(ctx context.Context, m *Manifest, entry ManifestEntry, strategy Strategy, embedder Embedder) ([]float32, error) {
	if len(entry.Embedding) > 0 {
		return strategy.Reduce([][]float32{entry.Embedding})
	}
	paths := m.ImagePaths(entry)
	if len(paths) == 0 {
		return nil, ErrNoReferenceSource
	}
	if embedder == nil {
		return nil, errors.New("no embedder available for reference images")
	}
	var lastErr error
	for _, path := range paths {
		variants, err := embedder.Embed(ctx, path, strategy == StrategyAveraged)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", filepath.Base(path), err)
			continue
		}
		return strategy.Reduce(variants)
	}
	return nil, lastErr
}

// Precompute embeds every image-backed identity and stores the reduced
// embedding in the entry so later loads skip image processing. Entries that
// already carry an embedding are kept unless force is set. progress, when
// non-nil, is called once per identity.
func (m *Manifest) Precompute(ctx context.Context, strategy Strategy, embedder Embedder, force bool, progress func(id string, err error)) []MissingReference {
	var missing []MissingReference
	for i := range m.Identities {
		if err := ctx.Err(); err != nil {
			break
		}
		entry := &m.Identities[i]
		if len(entry.Embedding) > 0 && (!force || len(entry.Images) == 0) {
			if progress != nil {
				progress(entry.ID, nil)
			}
			continue
		}
		source := *entry
		source.Embedding = nil
		embedding, err := buildReference(ctx, m, source, strategy, embedder)
		if err != nil {
			missing = append(missing, MissingReference{ID: entry.ID, Reason: err.Error()})
		} else {
			entry.Embedding = embedding
		}
		if progress != nil {
			progress(entry.ID, err)
		}
	}
	if strategy != "" {
		m.Strategy = string(strategy)
	}
	return missing
}
