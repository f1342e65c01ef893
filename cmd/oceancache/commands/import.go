package commands

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/marmos91/oceancache/internal/bytesize"
	"github.com/marmos91/oceancache/internal/logger"
	"github.com/marmos91/oceancache/pkg/config"
	"github.com/marmos91/oceancache/pkg/source"
	"github.com/marmos91/oceancache/pkg/source/badger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	importTargetFlag  string
	importBadgerPath  string
	importFSPath      string
	importConcurrency int
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import layer files into a local mirror",
	Long: `Import every .bin layer file below <dir> into a local mirror, so the
server can run with source.type badger or filesystem and no network access.

Files keep their base name as key ({attribute}_{year}_{month}_{day}_{hour}_{level}.bin).
The target defaults to source.type when it is filesystem, and to badger
otherwise. Paths default to source.badger.path and source.filesystem.base_path.
A filesystem target is created with source.filesystem.dir_mode and file_mode.

Examples:
  # Import into the configured mirror
  oceancache import ./data

  # Import into an explicit database with 8 writers
  oceancache import ./data --badger-path /var/lib/oceancache/mirror -j 8

  # Flatten a nested download into one directory
  oceancache import ./download --target filesystem --fs-path /srv/layers`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importTargetFlag, "target", "", "Mirror type: badger or filesystem (default: from source.type)")
	importCmd.Flags().StringVar(&importBadgerPath, "badger-path", "", "Badger database directory (default: source.badger.path)")
	importCmd.Flags().StringVar(&importFSPath, "fs-path", "", "Layer directory (default: source.filesystem.base_path)")
	importCmd.Flags().IntVarP(&importConcurrency, "concurrency", "j", 4, "Number of files written concurrently")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	target, err := openImportTarget(cfg.Source, importTargetFlag, importBadgerPath, importFSPath)
	if err != nil {
		return err
	}
	defer func() { _ = target.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := importLayers(ctx, args[0], target, importConcurrency)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Imported %d layers (%s) into %s %s", res.Files, bytesize.ByteSize(res.Bytes), target.kind, target.path)
	if c, ok := target.Writer.(layerCounter); ok {
		total, err := c.Count(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, " (%d layers total)", total)
	}
	_, _ = fmt.Fprintln(out)
	return nil
}

// layerCounter is implemented by mirrors that can count their layers.
type layerCounter interface {
	Count(ctx context.Context) (int, error)
}

// importTarget is an open mirror that layers are imported into.
type importTarget struct {
	source.Writer
	io.Closer
	kind string
	path string
}

// openImportTarget opens the mirror named by target ("" picks one from
// cfg.Type). Explicit paths override the configured ones.
func openImportTarget(cfg config.SourceConfig, target, badgerPath, fsPath string) (*importTarget, error) {
	if target == "" {
		target = config.SourceBadger
		if cfg.Type == config.SourceFilesystem {
			target = config.SourceFilesystem
		}
	}

	switch target {
	case config.SourceBadger:
		if badgerPath == "" {
			badgerPath = cfg.Badger.Path
		}
		if badgerPath == "" {
			return nil, fmt.Errorf("no badger path: set --badger-path or source.badger.path")
		}
		db, err := badger.Open(badger.Config{Path: badgerPath})
		if err != nil {
			return nil, err
		}
		return &importTarget{Writer: db, Closer: db, kind: target, path: badgerPath}, nil

	case config.SourceFilesystem:
		fsCfg := cfg.Filesystem
		if fsPath != "" {
			fsCfg.BasePath = fsPath
		}
		if fsCfg.BasePath == "" {
			return nil, fmt.Errorf("no layer directory: set --fs-path or source.filesystem.base_path")
		}
		// importing is how a mirror gets populated, so the directory may not exist yet
		fsCfg.CreateDir = true
		src, err := config.NewFilesystemSource(fsCfg)
		if err != nil {
			return nil, err
		}
		return &importTarget{Writer: src, Closer: src, kind: target, path: fsCfg.BasePath}, nil

	default:
		return nil, fmt.Errorf("unknown import target %q (want badger or filesystem)", target)
	}
}

// importResult summarizes an import.
type importResult struct {
	Files int
	Bytes int64
}

// importLayers copies the .bin files below dir into w, keyed by base name,
// with at most concurrency writes in flight. The first error stops the
// import.
func importLayers(ctx context.Context, dir string, w source.Writer, concurrency int) (importResult, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".bin") {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return importResult{}, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return importResult{}, fmt.Errorf("no .bin files found in %s", dir)
	}

	var (
		files atomic.Int64
		bytes atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for _, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", p, err)
			}
			if err := w.Put(gctx, filepath.Base(p), data); err != nil {
				return fmt.Errorf("failed to import %s: %w", p, err)
			}
			logger.Debug("Layer imported", logger.KeyPath, filepath.Base(p), "bytes", len(data))
			files.Add(1)
			bytes.Add(int64(len(data)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return importResult{}, err
	}
	return importResult{Files: int(files.Load()), Bytes: bytes.Load()}, nil
}
