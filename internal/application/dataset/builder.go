package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/ShiftGraph/internal/infrastructure/chem/sdf"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ShiftGraph/internal/infrastructure/storage"
	"github.com/turtacn/ShiftGraph/pkg/errors"
	mtypes "github.com/turtacn/ShiftGraph/pkg/types/molecule"
)

// RawDir and ProcessedDir are the subdirectories of a dataset root.
const (
	RawDir       = "raw"
	ProcessedDir = "processed"
)

// RawFileName returns the raw SDF name for nucleus, e.g. "carbon_dataset.sdf".
func RawFileName(n mtypes.Nucleus) string {
	return n.DatasetName() + "_dataset.sdf"
}

// RawPath returns <root>/raw/<name>_dataset.sdf.
func RawPath(root string, n mtypes.Nucleus) string {
	return filepath.Join(root, RawDir, RawFileName(n))
}

// CacheKey returns the blob key of the processed dataset for nucleus.
func CacheKey(n mtypes.Nucleus) string {
	return ProcessedDir + "/" + n.DatasetName() + "_dataset.pb.zst"
}

// BuildReport describes one Build call.
type BuildReport struct {
	RunID      string
	Nucleus    mtypes.Nucleus
	CacheHit   bool
	CacheKey   string
	Store      string
	Kept       int
	Rejected   int
	Rejections []Rejection
	Duration   time.Duration
}

// Builder produces the dataset for one nucleus, reusing the processed blob
// when it exists. A cached dataset is never revalidated against the raw file;
// delete the blob to force a rebuild. Stores implementing storage.Locker
// serialize builders of the same key across processes.
type Builder struct {
	root      string
	store     storage.BlobStore
	assembler *Assembler
	logger    logging.Logger
	metrics   Metrics
}

// NewBuilder returns a builder reading raw files under root and caching
// processed datasets in store.
func NewBuilder(root string, store storage.BlobStore, a *Assembler, log logging.Logger, m Metrics) *Builder {
	if m == nil {
		m = NopMetrics()
	}
	return &Builder{root: root, store: store, assembler: a, logger: logging.OrNop(log).Named("builder"), metrics: m}
}

// Nucleus returns the nucleus the builder labels.
func (b *Builder) Nucleus() mtypes.Nucleus {
	return b.assembler.Nucleus()
}

// RawPath returns the raw SDF this builder reads.
func (b *Builder) RawPath() string {
	return RawPath(b.root, b.Nucleus())
}

// Build returns the dataset, from cache when possible.
func (b *Builder) Build(ctx context.Context) (*Dataset, *BuildReport, error) {
	start := time.Now()
	nucleus := b.Nucleus()
	report := &BuildReport{
		RunID:    uuid.NewString(),
		Nucleus:  nucleus,
		CacheKey: CacheKey(nucleus),
		Store:    b.store.Name(),
	}
	log := b.logger.With(logging.String("run_id", report.RunID), logging.String("nucleus", nucleus.String()))

	rawPath := b.RawPath()
	if info, err := os.Stat(rawPath); err != nil || info.IsDir() {
		appErr := errors.New(errors.CodeRawFileMissing, "raw dataset file not found").WithDetail(rawPath)
		if err != nil {
			appErr = appErr.WithCause(err)
		}
		return nil, nil, appErr
	}

	hit, err := b.store.Exists(ctx, report.CacheKey)
	if err != nil {
		return nil, nil, err
	}
	if locker, ok := b.store.(storage.Locker); ok && !hit {
		release, err := locker.Lock(ctx, report.CacheKey)
		if err != nil {
			return nil, nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to release build lock", logging.Err(err))
			}
		}()
		// another builder may have finished while we waited
		if hit, err = b.store.Exists(ctx, report.CacheKey); err != nil {
			return nil, nil, err
		}
	}
	b.metrics.RecordCacheAccess(report.Store, hit)

	var ds *Dataset
	if hit {
		log.Info("processed data already exists", logging.String("key", report.CacheKey), logging.String("store", report.Store))
		ds, err = b.load(ctx, report.CacheKey)
		if err != nil {
			return nil, nil, err
		}
		if ds.Nucleus != nucleus {
			return nil, nil, errors.Newf(errors.CodeCacheCorrupt, "cached dataset is for %s, want %s", ds.Nucleus, nucleus).
				WithDetail(report.CacheKey)
		}
		report.CacheHit = true
	} else {
		log.Info("processing raw data", logging.String("path", rawPath))
		ds, report.Rejections, err = b.process(ctx, rawPath)
		if err != nil {
			return nil, nil, err
		}
		data, err := Encode(ds)
		if err != nil {
			return nil, nil, err
		}
		if err := b.store.Put(ctx, report.CacheKey, data); err != nil {
			return nil, nil, err
		}
		log.Info("saved processed data",
			logging.String("key", report.CacheKey),
			logging.String("store", report.Store),
			logging.Int("bytes", len(data)))
	}

	report.Kept = ds.Len()
	report.Rejected = len(report.Rejections)
	report.Duration = time.Since(start)
	b.metrics.ObserveBuild(nucleus.String(), report.CacheHit, report.Duration, report.Kept)
	log.Info(fmt.Sprintf("Valid molecules found: %d", report.Kept),
		logging.Bool("cache_hit", report.CacheHit),
		logging.Duration("duration", report.Duration))
	return ds, report, nil
}

func (b *Builder) load(ctx context.Context, key string) (*Dataset, error) {
	data, err := b.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	ds, err := Decode(data)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, appErr.WithDetail(key)
		}
		return nil, err
	}
	return ds, nil
}

func (b *Builder) process(ctx context.Context, rawPath string) (*Dataset, []Rejection, error) {
	f, err := os.Open(rawPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeFileRead, "failed to open raw dataset").WithDetail(rawPath)
	}
	defer f.Close()
	return b.assembler.Assemble(ctx, sdf.NewReader(f))
}

// Load returns the cached dataset for nucleus without touching the raw file.
func Load(ctx context.Context, store storage.BlobStore, nucleus mtypes.Nucleus) (*Dataset, error) {
	b := &Builder{store: store}
	ds, err := b.load(ctx, CacheKey(nucleus))
	if err != nil {
		return nil, err
	}
	if ds.Nucleus != nucleus {
		return nil, errors.Newf(errors.CodeCacheCorrupt, "cached dataset is for %s, want %s", ds.Nucleus, nucleus)
	}
	return ds, nil
}
