package main

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Session owns the single live ProcessedFiles and serialises ingestions:
// starting one cancels whichever run is still in flight, and a run only
// publishes its result if no newer run has started since.
type Session struct {
	logger    *zap.Logger
	collector *Collector
	builder   *Builder
	opts      BuildOptions
	tokenizer Tokenizer

	mu         sync.Mutex
	data       *ProcessedFiles
	source     Source
	selected   string
	showStats  bool
	generation uint64
	cancel     context.CancelCauseFunc
}

// newSession creates an empty session. tk may be nil when token counts are not wanted.
func newSession(logger *zap.Logger, collector *Collector, builder *Builder, opts BuildOptions, tk Tokenizer) *Session {
	return &Session{
		logger:    logger,
		collector: collector,
		builder:   builder,
		opts:      opts,
		tokenizer: tk,
		showStats: opts.ShowStats,
	}
}

// Ingest collects, filters and builds src, then replaces the session's data.
// If the run is cancelled, by ctx, Cancel, Reset or a newer ingestion, it
// returns an ErrAborted error and the previous data stays untouched.
func (s *Session) Ingest(ctx context.Context, src Source) error {
	runCtx, gen, cancel := s.begin(ctx)
	defer s.end(gen, cancel)

	s.logger.Info("ingesting", zap.String("source", src.Describe()), zap.Uint64("run", gen))
	result, err := s.run(runCtx, src)
	if err != nil {
		if runCtx.Err() != nil && !isAborted(err) {
			err = aborted(runCtx)
		}
		if isAborted(err) {
			s.logger.Info("ingestion cancelled", zap.Uint64("run", gen), zap.Error(context.Cause(runCtx)))
			return err
		}
		return fmt.Errorf("ingesting %s: %w", src.Describe(), err)
	}
	return s.publish(runCtx, gen, src, result)
}

func (s *Session) run(ctx context.Context, src Source) (*ProcessedFiles, error) {
	handles, err := src.Collect(ctx, s.collector)
	if err != nil {
		return nil, err
	}
	accepted := filterHandles(handles)
	s.logger.Debug("filtered handles", zap.Int("collected", len(handles)), zap.Int("accepted", len(accepted)))

	s.mu.Lock()
	opts := s.opts
	opts.ShowStats = s.showStats
	s.mu.Unlock()

	return s.builder.Build(ctx, accepted, opts)
}

func (s *Session) begin(ctx context.Context) (context.Context, uint64, context.CancelCauseFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel(errSuperseded)
	}
	s.generation++
	runCtx, cancel := context.WithCancelCause(ctx)
	s.cancel = cancel
	return runCtx, s.generation, cancel
}

func (s *Session) end(gen uint64, cancel context.CancelCauseFunc) {
	s.mu.Lock()
	if s.generation == gen {
		s.cancel = nil
	}
	s.mu.Unlock()
	cancel(nil)
}

func (s *Session) publish(ctx context.Context, gen uint64, src Source, result *ProcessedFiles) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || ctx.Err() != nil {
		return aborted(ctx)
	}
	// The stats flag may have been toggled while the build ran.
	result.Structure = renderTree(result.Tree, result.RootName, s.showStats)
	s.data = result
	s.source = src
	s.selected = ""
	s.logger.Info("ingestion complete",
		zap.Uint64("run", gen),
		zap.String("root", result.RootName),
		zap.Int("files", len(result.Contents)))
	return nil
}

// Refresh re-ingests the source of the last successful ingestion.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	src := s.source
	s.mu.Unlock()
	if src == nil {
		return ErrNothingLoaded
	}
	return s.Ingest(ctx, src)
}

// Cancel aborts the in-flight ingestion, if any.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel(context.Canceled)
		s.cancel = nil
	}
}

// Reset aborts any ingestion and discards all data.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel(context.Canceled)
		s.cancel = nil
	}
	s.generation++
	s.data = nil
	s.source = nil
	s.selected = ""
}

// Delete removes the node at path, and its whole subtree for a directory,
// along with every content entry beneath it.
func (s *Session) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return ErrNothingLoaded
	}
	forest, ok := removeNode(s.data.Tree, path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	s.data.Tree = forest

	kept := s.data.Contents[:0]
	for _, fc := range s.data.Contents {
		if fc.Path != path && !isUnder(fc.Path, path) {
			kept = append(kept, fc)
		}
	}
	s.data.Contents = kept

	if s.selected == path || isUnder(s.selected, path) {
		s.selected = ""
	}
	s.rerender()
	return nil
}

// removeNode rebuilds the sibling list that held path without it.
func removeNode(nodes []*TreeNode, path string) ([]*TreeNode, bool) {
	for i, n := range nodes {
		if n.Path == path {
			out := make([]*TreeNode, 0, len(nodes)-1)
			out = append(out, nodes[:i]...)
			return append(out, nodes[i+1:]...), true
		}
		if n.IsDir && isUnder(path, n.Path) {
			children, ok := removeNode(n.Children, path)
			if ok {
				n.Children = children
			}
			return nodes, ok
		}
	}
	return nodes, false
}

// ToggleExclude flips the excluded flag of a processed file and reports the new value.
// The content entry is kept so the file can be included again.
func (s *Session) ToggleExclude(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return false, ErrNothingLoaded
	}
	node := findNode(s.data.Tree, path)
	if node == nil {
		return false, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if node.IsDir || node.Status != StatusProcessed {
		return false, fmt.Errorf("%w: %s", ErrNotExcludable, path)
	}
	node.Excluded = !node.Excluded
	if i := s.data.contentIndex(path); i >= 0 {
		s.data.Contents[i].Excluded = node.Excluded
	}
	s.rerender()
	return node.Excluded, nil
}

// EditContent replaces a file's extracted text and recomputes its stats.
// The tree node keeps the stats it was ingested with.
func (s *Session) EditContent(path, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return ErrNothingLoaded
	}
	i := s.data.contentIndex(path)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	s.data.Contents[i].Content = text
	s.data.Contents[i].Stats = textStats(text)
	return nil
}

// SetShowStats changes the stats annotation flag and redraws the structure.
func (s *Session) SetShowStats(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.showStats == show {
		return
	}
	s.showStats = show
	if s.data != nil {
		s.rerender()
	}
}

func (s *Session) ShowStats() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showStats
}

// Select marks a file as the current selection.
func (s *Session) Select(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return ErrNothingLoaded
	}
	node := findNode(s.data.Tree, path)
	if node == nil || node.IsDir {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	s.selected = path
	return nil
}

func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Snapshot returns a deep copy of the current data, or nil before the first ingestion.
func (s *Session) Snapshot() *ProcessedFiles {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// Content returns the extracted content of one file.
func (s *Session) Content(path string) (FileContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return FileContent{}, ErrNothingLoaded
	}
	i := s.data.contentIndex(path)
	if i < 0 {
		return FileContent{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return s.data.Contents[i], nil
}

// Output assembles the exportable document.
func (s *Session) Output() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return "", ErrNothingLoaded
	}
	return assembleOutput(s.data.Structure, s.data.Contents), nil
}

func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return Summary{}
	}
	return summarize(s.data.Contents, s.tokenizer)
}

func (s *Session) Search(query string, opts SearchOptions) []SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil
	}
	return searchContents(s.data.Contents, query, opts)
}

func (s *Session) Rank() []FileContent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil
	}
	return rankBySize(s.data.Contents)
}

// rerender redraws the structure string. Callers hold s.mu.
func (s *Session) rerender() {
	s.data.Structure = renderTree(s.data.Tree, s.data.RootName, s.showStats)
}
