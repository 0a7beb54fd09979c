package main

import (
	"regexp"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// SearchOptions selects how a query is matched.
type SearchOptions struct {
	CaseSensitive bool
	UseRegex      bool
	// WholeWord only applies to literal queries.
	WholeWord bool
	// Fuzzy matches the query's characters in order within each line.
	Fuzzy bool
}

// SearchResult is one match within a file's content.
type SearchResult struct {
	Path string
	// Offset and Length are byte positions within the content.
	Offset int
	Length int
	Match  string
	// Line is 1-based.
	Line int
	// Index counts matches within the same file, from 0.
	Index int
}

// searchContents finds query in every non-excluded file. Blank queries and
// invalid patterns produce no results.
func searchContents(contents []FileContent, query string, opts SearchOptions) []SearchResult {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	if opts.Fuzzy {
		return fuzzySearch(contents, query, opts.CaseSensitive)
	}
	re, err := compileQuery(query, opts)
	if err != nil {
		return nil
	}

	var results []SearchResult
	for _, fc := range contents {
		if fc.Excluded {
			continue
		}
		index := 0
		for _, loc := range re.FindAllStringIndex(fc.Content, -1) {
			if loc[0] == loc[1] {
				continue
			}
			results = append(results, SearchResult{
				Path:   fc.Path,
				Offset: loc[0],
				Length: loc[1] - loc[0],
				Match:  fc.Content[loc[0]:loc[1]],
				Line:   strings.Count(fc.Content[:loc[0]], "\n") + 1,
				Index:  index,
			})
			index++
		}
	}
	return results
}

func compileQuery(query string, opts SearchOptions) (*regexp.Regexp, error) {
	pattern := query
	if !opts.UseRegex {
		pattern = regexp.QuoteMeta(query)
		if opts.WholeWord {
			pattern = `\b` + pattern + `\b`
		}
	}
	if !opts.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// fuzzySearch reports every line that contains the query's characters in order.
func fuzzySearch(contents []FileContent, query string, caseSensitive bool) []SearchResult {
	match := fuzzy.MatchFold
	if caseSensitive {
		match = fuzzy.Match
	}

	var results []SearchResult
	for _, fc := range contents {
		if fc.Excluded {
			continue
		}
		offset, index := 0, 0
		for i, line := range strings.Split(fc.Content, "\n") {
			if line != "" && match(query, line) {
				results = append(results, SearchResult{
					Path:   fc.Path,
					Offset: offset,
					Length: len(line),
					Match:  line,
					Line:   i + 1,
					Index:  index,
				})
				index++
			}
			offset += len(line) + 1
		}
	}
	return results
}
