package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path"
	"strings"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
	"go.uber.org/zap"
)

const (
	actionSelect  = "select file"
	actionJump    = "jump to line"
	actionExclude = "toggle exclude"
	actionDelete  = "delete"
	actionEdit    = "edit content"
	actionStats   = "toggle char counts"
	actionRefresh = "refresh"
	actionDone    = "done"
)

var interactiveActions = []string{
	actionSelect, actionJump, actionExclude, actionDelete, actionEdit, actionStats, actionRefresh, actionDone,
}

// runInteractive lets the user edit the session with a fuzzy finder until
// they pick "done" or press Esc.
func runInteractive(ctx context.Context, s *Session, out io.Writer, logger *zap.Logger) error {
	for {
		snap := s.Snapshot()
		if snap == nil {
			return ErrNothingLoaded
		}
		idx, err := fuzzyfinder.Find(
			interactiveActions,
			func(i int) string { return interactiveActions[i] },
			fuzzyfinder.WithHeader("Choose an action (Esc to finish)"),
			fuzzyfinder.WithPreviewWindow(func(i, w, h int) string { return snap.Structure }),
		)
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("fuzzy finder error: %w", err)
		}

		action := interactiveActions[idx]
		if action == actionDone {
			return nil
		}
		if err := runAction(ctx, s, snap, action); err != nil {
			if errors.Is(err, fuzzyfinder.ErrAbort) {
				continue
			}
			if isAborted(err) {
				fmt.Fprintln(out, "operation cancelled")
				continue
			}
			logger.Warn("action failed", zap.String("action", action), zap.Error(err))
			fmt.Fprintf(out, "%s: %v\n", action, err)
			continue
		}
		if updated := s.Snapshot(); updated != nil {
			fmt.Fprint(out, updated.Structure)
		}
	}
}

func runAction(ctx context.Context, s *Session, snap *ProcessedFiles, action string) error {
	switch action {
	case actionSelect:
		p, err := pickNode(snap, func(n *TreeNode) bool { return !n.IsDir })
		if err != nil {
			return err
		}
		return s.Select(p)
	case actionJump:
		p, err := pickLine(snap)
		if err != nil {
			return err
		}
		return s.Select(p)
	case actionExclude:
		p, err := pickNode(snap, func(n *TreeNode) bool { return !n.IsDir && n.Status == StatusProcessed })
		if err != nil {
			return err
		}
		_, err = s.ToggleExclude(p)
		return err
	case actionDelete:
		p, err := pickNode(snap, func(*TreeNode) bool { return true })
		if err != nil {
			return err
		}
		return s.Delete(p)
	case actionEdit:
		p, err := pickNode(snap, func(n *TreeNode) bool { return !n.IsDir && n.Status == StatusProcessed })
		if err != nil {
			return err
		}
		fc, err := s.Content(p)
		if err != nil {
			return err
		}
		text, err := editInEditor(fc.Path, fc.Content)
		if err != nil {
			return err
		}
		return s.EditContent(p, text)
	case actionStats:
		s.SetShowStats(!s.ShowStats())
		return nil
	case actionRefresh:
		return s.Refresh(ctx)
	}
	return fmt.Errorf("unknown action %q", action)
}

// flattenNodes lists every node of the forest in display order.
func flattenNodes(forest []*TreeNode, keep func(*TreeNode) bool) []*TreeNode {
	var out []*TreeNode
	for _, n := range forest {
		if keep(n) {
			out = append(out, n)
		}
		if n.IsDir {
			out = append(out, flattenNodes(n.Children, keep)...)
		}
	}
	return out
}

// pickNode asks the user for one node among those keep accepts.
func pickNode(snap *ProcessedFiles, keep func(*TreeNode) bool) (string, error) {
	candidates := flattenNodes(snap.Tree, keep)
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: no matching entries", ErrNotFound)
	}
	idx, err := fuzzyfinder.Find(
		candidates,
		func(i int) string {
			if candidates[i].IsDir {
				return candidates[i].Path + "/"
			}
			return candidates[i].Path
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			return nodePreview(snap, candidates[i])
		}),
	)
	if err != nil {
		return "", err
	}
	return candidates[idx].Path, nil
}

func nodePreview(snap *ProcessedFiles, n *TreeNode) string {
	if n.IsDir {
		return fmt.Sprintf("Directory: %s\nEntries: %d", n.Path, len(n.Children))
	}
	if i := snap.contentIndex(n.Path); i >= 0 {
		fc := snap.Contents[i]
		return fmt.Sprintf("%s (%s, %d lines)\n\n%s", fc.Path, fc.Language, fc.Stats.Lines, fc.Content)
	}
	status := string(n.Status)
	if status == "" {
		status = "unread"
	}
	return fmt.Sprintf("File: %s\nStatus: %s", n.Path, status)
}

type lineRef struct {
	path string
	line int
	text string
}

// pickLine fuzzy-finds a line across all included files and returns its file path.
func pickLine(snap *ProcessedFiles) (string, error) {
	var lines []lineRef
	for _, fc := range snap.Contents {
		if fc.Excluded {
			continue
		}
		for i, text := range strings.Split(fc.Content, "\n") {
			if strings.TrimSpace(text) != "" {
				lines = append(lines, lineRef{path: fc.Path, line: i + 1, text: text})
			}
		}
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("%w: no content to search", ErrNotFound)
	}
	idx, err := fuzzyfinder.Find(lines, func(i int) string {
		return fmt.Sprintf("%s:%d: %s", lines[i].path, lines[i].line, lines[i].text)
	})
	if err != nil {
		return "", err
	}
	return lines[idx].path, nil
}

// editorCommand splits $VISUAL or $EDITOR into a command line, defaulting to vi.
func editorCommand() []string {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(os.Getenv(key)); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}

// editInEditor opens text in $VISUAL or $EDITOR and returns the saved result.
func editInEditor(filePath, text string) (string, error) {
	editor := editorCommand()

	f, err := os.CreateTemp("", "insight-*-"+path.Base(filePath))
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	cmd := exec.Command(editor[0], append(editor[1:], f.Name())...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("editor %s failed: %w", editor[0], err)
	}
	edited, err := os.ReadFile(f.Name())
	if err != nil {
		return "", err
	}
	return string(edited), nil
}
