// Package crawler walks a single site breadth-first, fetching and extracting
// each page until the frontier is exhausted or the page budget is spent.
package crawler
