// Package discovery implements C3: enumerating and validating plausible
// RSS/Atom/JSON-feed endpoints for a site URL via an in-browser fetch.
package discovery

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"omninews-ingest/internal/domain/omniverr"
	"omninews-ingest/internal/infra/webdriver"
)

const readyWait = 5 * time.Second

var sectionPrefixes = map[string]bool{
	"blog": true, "news": true, "posts": true, "articles": true,
	"stories": true, "updates": true, "press": true,
}

var rootSuffixes = []string{
	"/rss", "/rss.xml", "/feed", "/feed/", "/feed.xml", "/atom.xml",
	"/index.xml", "/rss/", "/feed.json", "/?format=rss",
	"/feeds/posts/default?alt=rss", "/?feed=rss2", "/?feed=atom",
}

var sectionSuffixes = []string{
	"/rss", "/rss.xml", "/rss/", "/feed", "/feed/", "/feed.xml",
	"/atom.xml", "/index.xml", "/feed.json",
}

// Discover returns plausible feed URLs for siteURL, in first-occurrence
// order, per §4.3's 6-step algorithm.
func Discover(ctx context.Context, session *webdriver.Session, siteURL string) ([]string, error) {
	page, err := session.Page(ctx)
	if err != nil {
		return nil, omniverr.WebDriver(err)
	}
	defer page.Close()

	if err := webdriver.WaitReady(page, siteURL, readyWait); err != nil {
		return nil, omniverr.WebDriver(err)
	}

	fromLinks, err := extractAlternateLinks(page, siteURL)
	if err != nil {
		return nil, omniverr.WebDriver(err)
	}

	var ordered []string
	seen := map[string]bool{}
	for _, u := range fromLinks {
		if !seen[u] {
			seen[u] = true
			ordered = append(ordered, u)
		}
	}

	if len(ordered) == 0 {
		for _, candidate := range buildCandidates(siteURL) {
			if !seen[candidate] {
				seen[candidate] = true
				ordered = append(ordered, candidate)
			}
		}
	}

	var validated []string
	for _, candidate := range ordered {
		if validateCandidate(page, candidate) {
			validated = append(validated, candidate)
		}
	}

	return validated, nil
}

// Select applies §4.3 step 6: prefer the first URL not containing
// "comments", else the first.
func Select(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	for _, c := range candidates {
		if !strings.Contains(c, "comments") {
			return c, true
		}
	}
	return candidates[0], true
}

func extractAlternateLinks(page *rod.Page, base string) ([]string, error) {
	const js = `() => Array.from(document.querySelectorAll('link[rel="alternate"]')).map(l => ({href: l.getAttribute('href') || '', type: l.getAttribute('type') || ''}))`
	result, err := page.Eval(js)
	if err != nil {
		return nil, err
	}

	type linkEntry struct {
		Href string `json:"href"`
		Type string `json:"type"`
	}
	var entries []linkEntry
	if err := result.Value.Unmarshal(&entries); err != nil {
		return nil, nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		t := strings.ToLower(e.Type)
		if !strings.Contains(t, "rss") && !strings.Contains(t, "atom") && t != "application/feed+json" {
			continue
		}
		if e.Href == "" {
			continue
		}
		resolved, err := baseURL.Parse(e.Href)
		if err != nil {
			continue
		}
		out = append(out, resolved.String())
	}
	return out, nil
}

// buildCandidates is pure: same input URL always yields the same
// ordered candidate list (testable property 5).
func buildCandidates(siteURL string) []string {
	u, err := url.Parse(siteURL)
	if err != nil {
		return nil
	}
	root := fmt.Sprintf("%s://%s", u.Scheme, u.Host)

	var candidates []string
	for _, suffix := range rootSuffixes {
		candidates = append(candidates, root+suffix)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) > 0 && sectionPrefixes[segments[0]] {
		prefix := root + "/" + segments[0]
		for _, suffix := range sectionSuffixes {
			candidates = append(candidates, prefix+suffix)
		}
	}

	if len(segments) >= 2 && (segments[0] == "category" || segments[0] == "tag") {
		prefix := root + "/" + segments[0] + "/" + segments[1]
		candidates = append(candidates,
			prefix+"/feed",
			root+"/category/"+segments[1]+"/feed",
			root+"/tag/"+segments[1]+"/feed",
			prefix+"/rss",
			root+"/category/"+segments[1]+"/rss",
			root+"/tag/"+segments[1]+"/rss",
		)
	}

	return candidates
}

func validateCandidate(page *rod.Page, candidate string) bool {
	const js = `(url) => fetch(url, {headers: {Accept: 'application/rss+xml, application/atom+xml, application/feed+json, application/xml, text/xml'}, cache: 'no-store'}).then(async r => ({ok: r.ok, contentType: r.headers.get('content-type') || '', body: (await r.text()).slice(0, 2000)})).catch(() => ({ok: false, contentType: '', body: ''}))`

	result, err := page.Eval(js, candidate)
	if err != nil {
		return false
	}

	var resp struct {
		OK          bool   `json:"ok"`
		ContentType string `json:"contentType"`
		Body        string `json:"body"`
	}
	if err := result.Value.Unmarshal(&resp); err != nil {
		return false
	}
	if !resp.OK {
		return false
	}

	ct := strings.ToLower(resp.ContentType)
	if strings.Contains(ct, "xml") || strings.Contains(ct, "rss") || strings.Contains(ct, "atom") || strings.Contains(ct, "feed+json") {
		return true
	}

	body := resp.Body
	if strings.Contains(body, "<rss") || strings.Contains(body, "<feed") {
		return true
	}
	if strings.Contains(body, "<?xml") && (strings.Contains(body, "<channel") || strings.Contains(body, "<feed>")) {
		return true
	}
	if strings.Contains(strings.ToLower(body), "jsonfeed") {
		return true
	}
	return false
}
