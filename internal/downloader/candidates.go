package downloader

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// DefaultSuffixes are tried after the filename base when none are configured.
var DefaultSuffixes = []string{"", "_2"}

// RelativePaths lists the path guesses for a period: numeric month before the
// month abbreviation, and for each, the suffixes in order.
func RelativePaths(p Period, filenameBase string, suffixes []string) []string {
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	prefixes := []string{p.String(), p.Abbrev()}
	paths := make([]string, 0, len(prefixes)*len(suffixes))
	for _, prefix := range prefixes {
		for _, suffix := range suffixes {
			filename := strings.ReplaceAll(filenameBase+suffix+".pdf", " ", "%20")
			paths = append(paths, prefix+"/"+filename)
		}
	}
	return paths
}

// Candidates expands every base URL with the relative paths for p. Base URLs
// form the outer loop so all guesses against one host are tried first.
func Candidates(p Period, baseURLs []string, filenameBase string, suffixes []string) []Candidate {
	rel := RelativePaths(p, filenameBase, suffixes)
	out := make([]Candidate, 0, len(baseURLs)*len(rel))
	for _, base := range baseURLs {
		for _, r := range rel {
			full := JoinURL(base, r)
			out = append(out, Candidate{
				RelativePath: r,
				URL:          full,
				Filename:     FilenameFromURL(full, p),
			})
		}
	}
	return out
}

// JoinURL appends rel to base with exactly one slash between them.
func JoinURL(base, rel string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(rel, "/")
}

// FilenameFromURL derives the local filename for a candidate: the decoded
// basename of the URL path prefixed with YYYY-MM_.
func FilenameFromURL(rawURL string, p Period) string {
	escaped := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		escaped = u.EscapedPath()
	}
	base := path.Base(escaped)
	if decoded, err := url.PathUnescape(base); err == nil {
		base = decoded
	}
	return fmt.Sprintf("%s_%s", p.String(), base)
}
