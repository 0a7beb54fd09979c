package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"gopkg.in/yaml.v3"
)

// fallbackLanguage is the tag for files no table or lexer recognises.
const fallbackLanguage = "plaintext"

// defaultLanguages maps a lowercased extension (without the dot) to a highlight tag.
var defaultLanguages = map[string]string{
	"js":         "javascript",
	"jsx":        "javascript",
	"ts":         "typescript",
	"tsx":        "typescript",
	"py":         "python",
	"html":       "xml",
	"xml":        "xml",
	"css":        "css",
	"scss":       "css",
	"less":       "css",
	"json":       "json",
	"md":         "markdown",
	"yml":        "yaml",
	"yaml":       "yaml",
	"sh":         "bash",
	"java":       "java",
	"c":          "c",
	"h":          "c",
	"cpp":        "cpp",
	"hpp":        "cpp",
	"cs":         "csharp",
	"go":         "go",
	"php":        "php",
	"rb":         "ruby",
	"rs":         "rust",
	"sql":        "sql",
	"swift":      "swift",
	"kt":         "kotlin",
	"kts":        "kotlin",
	"dockerfile": "dockerfile",
	"gradle":     "groovy",
	"vue":        "html",
	"svelte":     "html",
	"log":        "plaintext",
	"txt":        "plaintext",
	"env":        "properties",
	"ini":        "ini",
}

// LanguageInfo is one entry of a languages.yml override file.
type LanguageInfo struct {
	Extensions []string `yaml:"extensions"`
	Filenames  []string `yaml:"filenames"`
}

// LanguageMap maps a language tag (e.g. "terraform") to the files it claims.
type LanguageMap map[string]LanguageInfo

// LanguageClassifier resolves a file name to a highlight tag.
type LanguageClassifier struct {
	extensionMap map[string]string
	filenameMap  map[string]string
	useLexers    bool
}

// newLanguageClassifier builds a classifier from the built-in table plus overrides.
// Overrides win over the built-in table for the extensions they name.
func newLanguageClassifier(overrides LanguageMap) *LanguageClassifier {
	lc := &LanguageClassifier{
		extensionMap: make(map[string]string, len(defaultLanguages)),
		filenameMap:  make(map[string]string),
	}
	for ext, lang := range defaultLanguages {
		lc.extensionMap[ext] = lang
	}
	for lang, info := range overrides {
		tag := strings.ToLower(lang)
		for _, ext := range info.Extensions {
			lc.extensionMap[strings.ToLower(strings.TrimPrefix(ext, "."))] = tag
		}
		for _, name := range info.Filenames {
			lc.filenameMap[name] = tag
		}
	}
	return lc
}

// withLexerFallback makes names missing from the tables resolve through the
// chroma lexer registry before falling back to plaintext.
func (lc *LanguageClassifier) withLexerFallback() *LanguageClassifier {
	lc.useLexers = true
	return lc
}

// loadLanguageFile parses a languages.yml override file.
func loadLanguageFile(path string) (LanguageMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading language file %s: %w", path, err)
	}
	var langs LanguageMap
	if err := yaml.Unmarshal(data, &langs); err != nil {
		return nil, fmt.Errorf("error parsing language file %s: %w", path, err)
	}
	return langs, nil
}

// Classify returns the highlight tag for a file name. It never fails.
func (lc *LanguageClassifier) Classify(fileName string) string {
	if lc == nil {
		lc = defaultClassifier
	}
	base := fileName
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}

	if lang, ok := lc.filenameMap[base]; ok {
		return lang
	}
	if lang, ok := lc.extensionMap[extensionOf(base)]; ok {
		return lang
	}
	if lc.useLexers {
		if lexer := lexers.Match(base); lexer != nil {
			return lexerTag(lexer.Config().Name)
		}
	}
	return fallbackLanguage
}

var defaultClassifier = newLanguageClassifier(nil)

// extensionOf returns the lowercased text after the last dot. A name without
// a dot is its own extension, so "Dockerfile" resolves to "dockerfile".
func extensionOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

func lexerTag(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}
