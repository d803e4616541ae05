package fetch

import (
	"net/url"
	"strings"
)

// CandidateKind tells how a candidate URL relates to the requested one.
type CandidateKind string

const (
	// KindAPI is a hosting API endpoint whose body wraps the file content.
	KindAPI CandidateKind = "api"
	// KindRaw serves the file content directly from the hosting provider.
	KindRaw CandidateKind = "raw"
	// KindProxy is a CORS/relay proxy in front of the content URL.
	KindProxy CandidateKind = "proxy"
	// KindDirect is the URL exactly as given.
	KindDirect CandidateKind = "direct"
)

// Candidate is one URL to try for a source.
type Candidate struct {
	URL  string
	Kind CandidateKind
}

const (
	gistAPIBase = "https://api.github.com/gists/"
	gistRawBase = "https://gist.githubusercontent.com/"
	rawGitHub   = "https://raw.githubusercontent.com/"
)

// Candidates expands rawURL into the ordered list of URLs to try. Known
// hosting pages (gists, GitHub blob views) come first as API and raw
// endpoints, then every proxy template, then the URL itself. Proxy
// templates contain "{url}", which is replaced with the escaped raw-content
// URL when there is one and the input otherwise.
func Candidates(rawURL string, proxies []string) []Candidate {
	rawURL = strings.TrimSpace(rawURL)
	var out []Candidate

	u, err := url.Parse(rawURL)
	if err == nil {
		out = append(out, hostedCandidates(u)...)
	}

	target := rawURL
	for _, c := range out {
		if c.Kind == KindRaw {
			target = c.URL
			break
		}
	}
	for _, p := range proxies {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		out = append(out, Candidate{
			URL:  strings.ReplaceAll(p, "{url}", url.QueryEscape(target)),
			Kind: KindProxy,
		})
	}

	out = append(out, Candidate{URL: rawURL, Kind: KindDirect})
	return dedupe(out)
}

func hostedCandidates(u *url.URL) []Candidate {
	segs := pathSegments(u.Path)

	switch strings.ToLower(u.Hostname()) {
	case "gist.github.com":
		switch len(segs) {
		case 1:
			return []Candidate{{URL: gistAPIBase + segs[0], Kind: KindAPI}}
		case 2, 3:
			// {user}/{id} or {user}/{id}/raw
			user, id := segs[0], segs[1]
			return []Candidate{
				{URL: gistAPIBase + id, Kind: KindAPI},
				{URL: gistRawBase + user + "/" + id + "/raw", Kind: KindRaw},
			}
		}
	case "github.com", "www.github.com":
		// {owner}/{repo}/blob/{ref}/{path...}
		if len(segs) >= 5 && segs[2] == "blob" {
			return []Candidate{{
				URL:  rawGitHub + strings.Join(append(segs[:2:2], segs[3:]...), "/"),
				Kind: KindRaw,
			}}
		}
	}
	return nil
}

func pathSegments(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func dedupe(in []Candidate) []Candidate {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, c := range in {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		out = append(out, c)
	}
	return out
}
