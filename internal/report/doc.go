// Package report renders an audit report for the command line, as indented
// JSON or as a Markdown document.
package report
