package config

import (
	"context"
	"fmt"
	"os"

	"github.com/marmos91/oceancache/internal/logger"
	"github.com/marmos91/oceancache/pkg/axis"
	"github.com/marmos91/oceancache/pkg/loader"
	"github.com/marmos91/oceancache/pkg/metadata"
	"github.com/marmos91/oceancache/pkg/prefetch"
	"github.com/marmos91/oceancache/pkg/source"
	"github.com/marmos91/oceancache/pkg/source/badger"
	"github.com/marmos91/oceancache/pkg/source/fs"
	httpsource "github.com/marmos91/oceancache/pkg/source/http"
	"github.com/marmos91/oceancache/pkg/source/s3"
)

// BuildAxes builds the coordinate system from the configured domains.
func BuildAxes(cfg DatasetConfig) (*axis.Axes, error) {
	timestamps, err := axis.ParseTimestamps(cfg.Timestamps)
	if err != nil {
		return nil, err
	}
	return buildAxes(cfg, timestamps)
}

func buildAxes(cfg DatasetConfig, timestamps []axis.Timestamp) (*axis.Axes, error) {
	levels := make([]axis.Level, len(cfg.Levels))
	for i, l := range cfg.Levels {
		levels[i] = axis.Level(l)
	}
	attrs := make([]axis.Attribute, len(cfg.Attributes))
	for i, a := range cfg.Attributes {
		attrs[i] = axis.Attribute(a)
	}
	return axis.New(levels, timestamps, attrs)
}

// BuildDataset builds the axes and loads metadata.json when MetadataPath is
// set. Timestamps listed in the metadata replace the configured ones. The
// returned metadata is nil without a MetadataPath.
func BuildDataset(cfg DatasetConfig) (*axis.Axes, *metadata.Metadata, error) {
	if cfg.MetadataPath == "" {
		axes, err := BuildAxes(cfg)
		return axes, nil, err
	}

	md, err := metadata.Load(cfg.MetadataPath)
	if err != nil {
		return nil, nil, err
	}

	timestamps := md.Timestamps()
	if len(timestamps) == 0 {
		if timestamps, err = axis.ParseTimestamps(cfg.Timestamps); err != nil {
			return nil, nil, err
		}
	} else {
		logger.Debug("Using metadata timestamps", "timestamps", len(timestamps))
	}

	axes, err := buildAxes(cfg, timestamps)
	if err != nil {
		return nil, nil, err
	}
	return axes, md, nil
}

// NewFilesystemSource opens the filesystem source described by cfg.
func NewFilesystemSource(cfg FilesystemSourceConfig) (*fs.Source, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("filesystem source requires base_path to be set")
	}
	// fs.New applies defaults for zero modes
	return fs.New(fs.Config{
		BasePath:  cfg.BasePath,
		CreateDir: cfg.CreateDir,
		DirMode:   os.FileMode(cfg.DirMode),
		FileMode:  os.FileMode(cfg.FileMode),
	})
}

// CreateSource creates the configured layer source.
func CreateSource(ctx context.Context, cfg SourceConfig) (source.Source, error) {
	var (
		src source.Source
		err error
	)
	switch cfg.Type {
	case SourceHTTP:
		src, err = newSource(httpsource.New(httpsource.Config{
			BaseURL:      cfg.HTTP.BaseURL,
			Timeout:      cfg.HTTP.Timeout,
			MaxIdleConns: cfg.HTTP.MaxIdleConns,
			UserAgent:    "oceancache",
		}))
	case SourceFilesystem:
		src, err = newSource(NewFilesystemSource(cfg.Filesystem))
	case SourceS3:
		src, err = newSource(s3.NewFromConfig(ctx, s3.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			KeyPrefix:       cfg.S3.KeyPrefix,
			ForcePathStyle:  cfg.S3.ForcePathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		}))
	case SourceBadger:
		src, err = newSource(badger.Open(badger.Config{Path: cfg.Badger.Path}))
	default:
		return nil, fmt.Errorf("unknown source type: %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s source: %w", cfg.Type, err)
	}
	return src, nil
}

// newSource drops the typed nil a failed constructor returns.
func newSource[S source.Source](s S, err error) (source.Source, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ToLoader converts the loader section for a source of type sourceType.
func (c LoaderConfig) ToLoader(sourceType string) loader.Config {
	return loader.Config{
		Coalesce:     c.CoalesceEnabled(),
		MaxLayerSize: c.MaxLayerSize.Int(),
		Timeout:      c.Timeout,
		SourceType:   sourceType,
	}
}

// ToScheduler converts the scheduler section.
func (c SchedulerConfig) ToScheduler() prefetch.Config {
	return prefetch.Config{
		MaxConcurrency:     c.MaxConcurrency,
		MaxCachingDistance: c.Distance(),
		AutoCache:          c.AutoCacheEnabled(),
	}
}

// BuildInitialSelection returns the configured startup selection over
// axes, with the whole point axis visible.
func BuildInitialSelection(cfg InitialSelectionConfig, axes *axis.Axes) (prefetch.Selection, error) {
	mode, err := axis.ParseMode(cfg.Mode)
	if err != nil {
		return prefetch.Selection{}, err
	}

	sel := prefetch.DefaultSelection(axes, mode, axis.Attribute(cfg.Attribute))
	sel.Timestamp, sel.Level = cfg.Timestamp, cfg.Level
	if err := sel.Validate(axes); err != nil {
		return prefetch.Selection{}, fmt.Errorf("invalid initial selection: %w", err)
	}
	return sel, nil
}
