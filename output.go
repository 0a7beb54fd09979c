package main

import (
	"fmt"
	"strings"
)

const (
	structureHeader = "File Structure:"
	contentsHeader  = "File Contents:"
	noContentsNote  = "(no file contents extracted)"
)

// fileRule delimits each file block in the assembled output.
var fileRule = strings.Repeat("=", 50)

// renderTree draws the forest under rootLabel with box-drawing connectors.
// A single directory root named rootLabel is not printed a second time.
func renderTree(forest []*TreeNode, rootLabel string, showStats bool) string {
	var builder strings.Builder
	builder.WriteString(rootLabel)
	builder.WriteString("\n")

	nodes := forest
	if len(forest) == 1 && forest[0].IsDir && forest[0].Name == rootLabel {
		nodes = forest[0].Children
	}
	printNode(&builder, nodes, "", showStats)
	return builder.String()
}

// printNode is a helper function for recursively printing tree nodes.
func printNode(builder *strings.Builder, children []*TreeNode, prefix string, showStats bool) {
	for i, node := range children {
		connector := "├── "
		newPrefix := prefix + "│   "
		if i == len(children)-1 {
			connector = "└── "
			newPrefix = prefix + "    "
		}

		builder.WriteString(prefix)
		builder.WriteString(connector)
		builder.WriteString(node.Name)
		builder.WriteString(annotation(node, showStats))
		builder.WriteString("\n")

		if node.IsDir {
			printNode(builder, node.Children, newPrefix, showStats)
		}
	}
}

// annotation returns at most one marker: excluded, then error, then stats.
func annotation(node *TreeNode, showStats bool) string {
	switch {
	case node.Excluded:
		return " (excluded)"
	case node.Status == StatusError:
		return " (error)"
	case showStats && !node.IsDir && node.Status == StatusProcessed:
		return fmt.Sprintf(" (%d chars)", node.Chars)
	}
	return ""
}

// assembleOutput joins the structure and every non-excluded file into one document.
func assembleOutput(structure string, contents []FileContent) string {
	var builder strings.Builder
	builder.WriteString(structureHeader)
	builder.WriteString("\n")
	builder.WriteString(structure)
	if !strings.HasSuffix(structure, "\n") {
		builder.WriteString("\n")
	}
	builder.WriteString("\n")
	builder.WriteString(contentsHeader)
	builder.WriteString("\n")

	included := 0
	for _, fc := range contents {
		if fc.Excluded {
			continue
		}
		included++
		builder.WriteString(fileRule)
		builder.WriteString("\n")
		fmt.Fprintf(&builder, "File: %s\n", fc.Path)
		builder.WriteString(fileRule)
		builder.WriteString("\n")
		builder.WriteString(fc.Content)
		// Ensure consistent line breaks after content
		if len(fc.Content) > 0 && !strings.HasSuffix(fc.Content, "\n") {
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}
	if included == 0 {
		builder.WriteString(noContentsNote)
		builder.WriteString("\n")
	}
	return builder.String()
}
