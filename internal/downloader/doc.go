// Package downloader resolves the next CF1400 period to fetch, probes the
// candidate URLs for it in order, and records the first successful download.
package downloader
