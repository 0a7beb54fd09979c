package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const appName = "insight"

// version is the application version, set via ldflags.
var version = "dev"

var (
	cfgFile string

	// Input
	filesFrom string

	// Editing before export
	deletePaths  []string
	excludePaths []string

	// Output
	treeOnly        bool
	outputFile      string
	saveOutput      bool
	clipboardOutput bool
	pdfOutputFile   string
	rankTop         int
	quiet           bool

	// Search
	searchQuery   string
	searchOptions SearchOptions

	// Modes
	interactiveMode bool
	watchMode       bool
)

var rootCmd = &cobra.Command{
	Use:   appName + " [PATHS...]",
	Short: "Render a project's structure and file contents as one text document.",
	Long: `insight ingests local directories, files, zip archives, Git repositories
and web pages, draws the file tree, and concatenates the content of every
text file into a single document for export, search and editing.`,
	Version:       version,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(viper.GetViper(), cfgFile)
	},
	RunE: run,
}

func init() {
	setDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/insight/config.toml)")

	// Ingestion
	rootCmd.Flags().StringVar(&filesFrom, "files-from", "", "Read relative file paths from a file, or - for stdin")
	rootCmd.Flags().Bool("extract-content", true, "Read file contents (false renders the tree only)")
	viper.BindPFlag("extract_content", rootCmd.Flags().Lookup("extract-content"))
	rootCmd.Flags().Int64("max-file-size", maxFileSize, "Largest file whose content is extracted, in bytes")
	viper.BindPFlag("max_file_size", rootCmd.Flags().Lookup("max-file-size"))
	rootCmd.Flags().IntP("workers", "t", 1, "Number of concurrent file reads")
	viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
	rootCmd.Flags().Bool("respect-gitignore", false, "Skip entries matched by each directory input's .gitignore")
	viper.BindPFlag("respect_gitignore", rootCmd.Flags().Lookup("respect-gitignore"))
	rootCmd.Flags().String("languages", "", "YAML file with extra language mappings")
	viper.BindPFlag("languages_file", rootCmd.Flags().Lookup("languages"))
	rootCmd.Flags().Bool("lexer-fallback", false, "Tag names missing from the language table by chroma lexer instead of plaintext")
	viper.BindPFlag("lexer_fallback", rootCmd.Flags().Lookup("lexer-fallback"))
	rootCmd.Flags().Int("link-depth", 0, "How many links to follow from web URL inputs")
	viper.BindPFlag("link_depth", rootCmd.Flags().Lookup("link-depth"))

	// Editing
	rootCmd.Flags().StringSliceVar(&deletePaths, "delete", nil, "Remove a tree path (and its subtree) before output")
	rootCmd.Flags().StringSliceVar(&excludePaths, "exclude", nil, "Exclude a processed file from the output")

	// Output
	rootCmd.Flags().Bool("show-stats", false, "Annotate files in the tree with their character count")
	viper.BindPFlag("show_stats", rootCmd.Flags().Lookup("show-stats"))
	rootCmd.Flags().BoolVar(&treeOnly, "tree-only", false, "Output only the file structure")
	rootCmd.Flags().StringVarP(&outputFile, "file", "f", "", "Save output to specified file")
	rootCmd.Flags().BoolVar(&saveOutput, "save", false, "Save output to <root name>.txt in the current directory")
	rootCmd.Flags().BoolVarP(&clipboardOutput, "clipboard", "c", false, "Copy output to clipboard")
	rootCmd.Flags().StringVar(&pdfOutputFile, "pdf", "", "Save output as PDF")
	rootCmd.Flags().IntVar(&rankTop, "rank", 0, "List the N largest files by character count")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress messages")

	// Tokens
	rootCmd.Flags().Bool("tokens", false, "Count tokens in the summary")
	viper.BindPFlag("tokens", rootCmd.Flags().Lookup("tokens"))
	rootCmd.Flags().String("tokenizer", "tiktoken", "Tokenizer to use: tiktoken or huggingface")
	viper.BindPFlag("tokenizer", rootCmd.Flags().Lookup("tokenizer"))
	rootCmd.Flags().String("model", "", "Model name for tokenizer (e.g., gpt-4o, gpt2)")
	viper.BindPFlag("tokenizer_model", rootCmd.Flags().Lookup("model"))
	rootCmd.Flags().String("tokenizer-file", "", "Path to local tokenizer file")
	viper.BindPFlag("tokenizer_file", rootCmd.Flags().Lookup("tokenizer-file"))

	// Search
	rootCmd.Flags().StringVar(&searchQuery, "search", "", "Search included files instead of printing the document")
	rootCmd.Flags().BoolVar(&searchOptions.CaseSensitive, "case-sensitive", false, "Match case when searching")
	rootCmd.Flags().BoolVar(&searchOptions.UseRegex, "regex", false, "Treat the search query as a regular expression")
	rootCmd.Flags().BoolVar(&searchOptions.WholeWord, "whole-word", false, "Only match whole words")
	rootCmd.Flags().BoolVar(&searchOptions.Fuzzy, "fuzzy", false, "Fuzzy-match lines against the query")

	// Modes
	rootCmd.Flags().BoolVar(&interactiveMode, "interactive", false, "Edit the result with a fuzzy finder before output")
	rootCmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Re-ingest local inputs when they change")
	rootCmd.Flags().Duration("debounce", 0, "Quiet period before a watched change triggers a refresh")
	viper.BindPFlag("watch_debounce", rootCmd.Flags().Lookup("debounce"))

	// Logging
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	rootCmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file, rotated")
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Debug("starting", zap.String("version", version), zap.String("config", viper.ConfigFileUsed()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var tk Tokenizer
	if cfg.Tokens {
		if tk, err = newTokenizer(cfg.Tokenizer, logger); err != nil {
			logger.Warn("token counting disabled", zap.Error(err))
			tk = nil
		}
	}

	// Progress lines are only useful on an interactive terminal.
	var progress ProgressFunc
	if !quiet && term.IsTerminal(int(os.Stderr.Fd())) {
		progress = func(msg string) { fmt.Fprintln(os.Stderr, msg) }
	}
	session := newSession(logger,
		newCollector(logger, progress),
		newBuilder(logger, cfg.languageClassifier(logger)),
		cfg.buildOptions(progress),
		tk)

	in, err := resolveInputs(ctx, args, cfg, logger)
	defer in.cleanup()
	if err != nil {
		if isAborted(err) {
			fmt.Fprintln(os.Stderr, "operation cancelled")
			return nil
		}
		return err
	}

	if err := session.Ingest(ctx, in.source); err != nil {
		if isAborted(err) {
			fmt.Fprintln(os.Stderr, "operation cancelled")
			return nil
		}
		return err
	}

	if err := applyEdits(session, deletePaths, excludePaths); err != nil {
		return err
	}
	if interactiveMode {
		if err := runInteractive(ctx, session, os.Stderr, logger); err != nil {
			return err
		}
	}

	if err := emit(session, os.Stdout, logger); err != nil {
		return err
	}

	if watchMode {
		if len(in.watchRoots) == 0 {
			return fmt.Errorf("--watch needs at least one local directory input")
		}
		var mu sync.Mutex
		fmt.Fprintln(os.Stderr, "watching for changes, press Ctrl-C to stop")
		return watchAndRefresh(ctx, session, in.watchRoots, cfg.WatchDebounce, logger, func() {
			mu.Lock()
			defer mu.Unlock()
			if err := applyEdits(session, deletePaths, excludePaths); err != nil {
				logger.Warn("could not reapply edits", zap.Error(err))
			}
			if err := emit(session, os.Stdout, logger); err != nil {
				logger.Error("output failed", zap.Error(err))
			}
		})
	}
	return nil
}

// inputs is the resolved ingestion source plus what it takes to watch and clean it up.
type inputs struct {
	source     Source
	watchRoots []string
	cleanups   []func()
}

func (in *inputs) cleanup() {
	for _, fn := range in.cleanups {
		fn()
	}
}

// resolveInputs turns command-line arguments into a single ingestion source.
// Git URLs are cloned and web URLs fetched up front; local paths are walked
// during ingestion. A URL ending in .git is cloned, not crawled.
func resolveInputs(ctx context.Context, args []string, cfg Config, logger *zap.Logger) (*inputs, error) {
	in := &inputs{}

	if filesFrom != "" {
		handles, err := readFileList(filesFrom, logger)
		if err != nil {
			return in, err
		}
		in.source = SelectionSource{Handles: handles}
		return in, nil
	}

	if len(args) == 0 {
		args = []string{"."}
	}
	var items []DropItem
	fetcher := newWebFetcher(nil, logger)
	for _, arg := range args {
		switch {
		case isGitURL(arg):
			dir, cleanup, err := cloneGitRepo(ctx, arg, progressWriter(), logger)
			if err != nil {
				return in, err
			}
			in.cleanups = append(in.cleanups, cleanup)
			item, err := localItem(dir, cfg, logger)
			if err != nil {
				return in, err
			}
			items = append(items, item)
		case isWebURL(arg):
			pages, err := fetcher.Fetch(ctx, arg, cfg.LinkDepth)
			if err != nil {
				return in, err
			}
			for _, page := range pages {
				items = append(items, handleItem{h: page})
			}
		default:
			item, err := localItem(arg, cfg, logger)
			if err != nil {
				return in, err
			}
			if _, ok := item.(DirItem); ok {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return in, fmt.Errorf("error resolving path %s: %w", arg, err)
				}
				in.watchRoots = append(in.watchRoots, abs)
			}
			items = append(items, item)
		}
	}
	in.source = DropSource{Items: items}
	return in, nil
}

func localItem(p string, cfg Config, logger *zap.Logger) (DropItem, error) {
	if cfg.RespectGitignore {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return newDiskItem(p, loadGitignore(p, logger))
		}
	}
	return newDiskItem(p, nil)
}

func progressWriter() io.Writer {
	if quiet {
		return nil
	}
	return os.Stderr
}

// readFileList reads newline-separated file paths; each becomes a handle
// tagged with the path as written. Missing files are skipped with a warning.
func readFileList(name string, logger *zap.Logger) ([]FileHandle, error) {
	var r io.Reader = os.Stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("error opening file list %s: %w", name, err)
		}
		defer f.Close()
		r = f
	}
	return parseFileList(r, logger)
}

func parseFileList(r io.Reader, logger *zap.Logger) ([]FileHandle, error) {
	var handles []FileHandle
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		h, err := newDiskHandle(line, filepath.ToSlash(filepath.Clean(line)))
		if err != nil {
			logger.Warn("skipping list entry", zap.String("path", line), zap.Error(err))
			continue
		}
		handles = append(handles, h)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file list: %w", err)
	}
	return handles, nil
}

// applyEdits deletes and excludes the given tree paths. Excluding a file
// that is already excluded leaves it excluded.
func applyEdits(s *Session, deletes, excludes []string) error {
	for _, p := range deletes {
		if err := s.Delete(p); err != nil {
			return fmt.Errorf("--delete %s: %w", p, err)
		}
	}
	for _, p := range excludes {
		fc, err := s.Content(p)
		if err == nil && fc.Excluded {
			continue
		}
		if _, err := s.ToggleExclude(p); err != nil {
			return fmt.Errorf("--exclude %s: %w", p, err)
		}
	}
	return nil
}

// emit writes search results, the ranking or the document to their destinations.
func emit(s *Session, stdout io.Writer, logger *zap.Logger) error {
	snap := s.Snapshot()
	if snap == nil {
		return ErrNothingLoaded
	}

	if searchQuery != "" {
		for _, r := range s.Search(searchQuery, searchOptions) {
			fmt.Fprintf(stdout, "%s:%d: %s\n", r.Path, r.Line, r.Match)
		}
		return nil
	}
	if rankTop > 0 {
		for i, fc := range s.Rank() {
			if i == rankTop {
				break
			}
			marker := ""
			if fc.Excluded {
				marker = " (excluded)"
			}
			fmt.Fprintf(stdout, "%8d  %s%s\n", fc.Stats.Chars, fc.Path, marker)
		}
		return nil
	}

	document := snap.Structure
	if !treeOnly {
		var err error
		if document, err = s.Output(); err != nil {
			return err
		}
	}
	summary := s.Summary()

	written := false
	if outputFile != "" {
		if err := writeOutputFile(outputFile, document); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Output saved to %s\n", outputFile)
		written = true
	}
	if saveOutput {
		name := saveFileName(snap.RootName)
		if err := writeOutputFile(name, document); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Output saved to %s\n", name)
		written = true
	}
	if clipboardOutput {
		if err := copyToClipboard(document); err != nil {
			logger.Warn("clipboard failed, printing instead", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, "Output copied to clipboard.")
			written = true
		}
	}
	if pdfOutputFile != "" {
		if err := generatePDF(snap, summary, pdfOutputFile); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "PDF saved to %s\n", pdfOutputFile)
		written = true
	}
	if !written {
		fmt.Fprint(stdout, document)
	}

	fmt.Fprintf(os.Stderr, "\n--- Summary ---\n%s\n", summaryText(summary))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
