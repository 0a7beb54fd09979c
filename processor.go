package main

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// defaultRootName labels a forest that is not a single directory.
const defaultRootName = "Project"

// BuildOptions controls a single tree build.
type BuildOptions struct {
	// ExtractContent disables all reads when false; every file is marked skipped.
	ExtractContent bool
	// MaxFileSize overrides the 5 MiB extraction limit when positive.
	MaxFileSize int64
	// Workers > 1 reads eligible files concurrently. Output is identical either way.
	Workers int
	// ShowStats annotates processed files with their character count.
	ShowStats bool
	Progress  ProgressFunc
}

func (o BuildOptions) sizeLimit() int64 {
	if o.MaxFileSize > 0 {
		return o.MaxFileSize
	}
	return maxFileSize
}

// Builder assembles ProcessedFiles from a filtered list of handles.
type Builder struct {
	logger *zap.Logger
	langs  *LanguageClassifier
	order  *nameOrder
}

func newBuilder(logger *zap.Logger, langs *LanguageClassifier) *Builder {
	return &Builder{logger: logger, langs: langs, order: newNameOrder()}
}

type pendingRead struct {
	node   *TreeNode
	handle FileHandle
}

type readResult struct {
	content string
	err     error
}

// Build constructs the forest, reads eligible files and renders the structure.
// A cancelled build returns an ErrAborted error and no partial result. Files
// that cannot be read are marked with StatusError and do not fail the build.
func (b *Builder) Build(ctx context.Context, handles []FileHandle, opts BuildOptions) (*ProcessedFiles, error) {
	nodes := make(map[string]*TreeNode)
	var forest []*TreeNode
	var reads []pendingRead
	limit := opts.sizeLimit()

	for _, h := range handles {
		if err := checkAborted(ctx); err != nil {
			return nil, err
		}
		p := handlePath(h)
		if p == "" {
			b.logger.Warn("skipping handle without a path", zap.String("name", h.Name()))
			continue
		}
		segments := strings.Split(p, "/")
		if !b.fits(nodes, segments) {
			continue
		}

		var parent *TreeNode
		cum := ""
		for i, seg := range segments {
			if i == 0 {
				cum = seg
			} else {
				cum += "/" + seg
			}
			node, ok := nodes[cum]
			if !ok {
				node = &TreeNode{Name: seg, Path: cum, IsDir: i < len(segments)-1}
				nodes[cum] = node
				if parent == nil {
					forest = b.order.insertSorted(forest, node)
				} else {
					parent.Children = b.order.insertSorted(parent.Children, node)
				}
			}
			parent = node
		}

		file := parent
		switch {
		case !opts.ExtractContent, hasIgnoredExtension(file.Name), h.Size() > limit:
			file.Status = StatusSkipped
		default:
			reads = append(reads, pendingRead{node: file, handle: h})
		}
	}

	results, err := b.readAll(ctx, reads, opts)
	if err != nil {
		return nil, err
	}

	contents := make([]FileContent, 0, len(reads))
	for i, r := range results {
		node := reads[i].node
		if r.err != nil {
			node.Status = StatusError
			b.logger.Warn("could not read file", zap.String("path", node.Path), zap.Error(r.err))
			continue
		}
		stats := textStats(r.content)
		node.Status = StatusProcessed
		node.Lines, node.Chars = stats.Lines, stats.Chars
		contents = append(contents, FileContent{
			Path:     node.Path,
			Content:  r.content,
			Language: b.langs.Classify(node.Name),
			Stats:    stats,
		})
	}
	b.order.sortContents(contents)

	rootName := defaultRootName
	if len(forest) == 1 && forest[0].IsDir {
		rootName = forest[0].Name
	}

	b.logger.Debug("built tree",
		zap.Int("handles", len(handles)),
		zap.Int("processed", len(contents)),
		zap.String("root", rootName))

	return &ProcessedFiles{
		Tree:      forest,
		Contents:  contents,
		Structure: renderTree(forest, rootName, opts.ShowStats),
		RootName:  rootName,
	}, nil
}

// fits reports whether a path can be added without clashing with existing nodes.
// A second handle at an existing file path loses to the first one.
func (b *Builder) fits(nodes map[string]*TreeNode, segments []string) bool {
	cum := ""
	for i, seg := range segments {
		if i == 0 {
			cum = seg
		} else {
			cum += "/" + seg
		}
		node, ok := nodes[cum]
		if !ok {
			return true
		}
		isLast := i == len(segments)-1
		switch {
		case isLast && !node.IsDir:
			b.logger.Warn("duplicate file path, keeping the first", zap.String("path", cum))
			return false
		case isLast && node.IsDir, !isLast && !node.IsDir:
			b.logger.Warn("path conflicts with an existing node", zap.String("path", strings.Join(segments, "/")))
			return false
		}
	}
	return true
}

// readAll reads every pending file as text, sequentially or with a bounded
// worker group. Read failures are recorded per file; only cancellation aborts.
func (b *Builder) readAll(ctx context.Context, reads []pendingRead, opts BuildOptions) ([]readResult, error) {
	results := make([]readResult, len(reads))
	total := len(reads)

	if opts.Workers <= 1 {
		for i, pr := range reads {
			if err := checkAborted(ctx); err != nil {
				return nil, err
			}
			reportProgress(b.logger, opts.Progress, "processing %d/%d: %s", i+1, total, pr.node.Path)
			content, err := readText(ctx, pr.handle)
			if isAborted(err) {
				return nil, err
			}
			results[i] = readResult{content: content, err: err}
		}
		return results, nil
	}

	reportProgress(b.logger, opts.Progress, "processing %d files with %d workers", total, opts.Workers)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, pr := range reads {
		g.Go(func() error {
			if err := checkAborted(gctx); err != nil {
				return err
			}
			content, err := readText(gctx, pr.handle)
			if isAborted(err) {
				return err
			}
			results[i] = readResult{content: content, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := checkAborted(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

// textStats counts newline-separated lines and characters.
func textStats(content string) FileStats {
	return FileStats{
		Lines: strings.Count(content, "\n") + 1,
		Chars: utf8.RuneCountInString(content),
	}
}
