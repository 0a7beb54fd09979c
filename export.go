package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/atotto/clipboard"
)

const defaultSaveName = "structure-insight.txt"

var unsafeFileChars = regexp.MustCompile(`[\\/?<>:*|"']`)

// saveFileName derives a .txt file name from a root name.
func saveFileName(rootName string) string {
	if strings.TrimSpace(rootName) == "" {
		return defaultSaveName
	}
	return unsafeFileChars.ReplaceAllString(rootName, "_") + ".txt"
}

func writeOutputFile(path, text string) error {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("error writing to file %s: %w", path, err)
	}
	return nil
}

func copyToClipboard(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("error writing to clipboard: %w", err)
	}
	return nil
}

// summaryText formats a summary for humans; tokens appear only when counted.
func summaryText(s Summary) string {
	text := fmt.Sprintf("Files: %d\nLines: %d\nCharacters: %d", s.TotalFiles, s.TotalLines, s.TotalChars)
	if s.TotalTokens > 0 {
		text += fmt.Sprintf("\nTokens: %d", s.TotalTokens)
	}
	return text
}
