// Package genius provides a lyrics.Provider backed by Genius.
//
// The Genius API does not serve lyric text, so a lookup is two requests: an
// authenticated search against api.genius.com to find the song page path,
// then a plain GET of the public song page whose lyric container is
// extracted from the HTML.
package genius

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/MrWong99/lyricsync/pkg/provider/lyrics"
)

const (
	defaultAPIBase  = "https://api.genius.com"
	defaultSiteBase = "https://genius.com"
	defaultTimeout  = 30 * time.Second
	userAgent       = "lyricsync/1.0"

	// maxPageBytes bounds the song page read into memory.
	maxPageBytes = 8 << 20
)

// Compile-time assertion that Provider implements lyrics.Provider.
var _ lyrics.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithAPIBaseURL overrides the Genius API base URL.
func WithAPIBaseURL(u string) Option {
	return func(p *Provider) {
		p.apiBase = strings.TrimRight(u, "/")
	}
}

// WithSiteBaseURL overrides the base URL that song paths are resolved
// against.
func WithSiteBaseURL(u string) Option {
	return func(p *Provider) {
		p.siteBase = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the HTTP client used for both requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// Provider implements lyrics.Provider using the Genius search API and song
// pages.
type Provider struct {
	accessToken string
	apiBase     string
	siteBase    string
	httpClient  *http.Client
}

// New creates a Genius Provider. accessToken is a Genius API client access
// token and must be non-empty.
func New(accessToken string, opts ...Option) (*Provider, error) {
	if accessToken == "" {
		return nil, errors.New("genius: access token must not be empty")
	}
	p := &Provider{
		accessToken: accessToken,
		apiBase:     defaultAPIBase,
		siteBase:    defaultSiteBase,
		httpClient:  &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// searchResponse is the subset of the /search payload the provider needs.
type searchResponse struct {
	Response struct {
		Hits []struct {
			Result struct {
				Path string `json:"path"`
			} `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

// Lookup searches Genius for q, takes the first hit and scrapes its lyrics.
func (p *Provider) Lookup(ctx context.Context, q lyrics.Query) (string, error) {
	if q.IsZero() {
		return "", errors.New("genius: empty query")
	}

	path, err := p.search(ctx, q)
	if err != nil {
		return "", err
	}

	page, err := p.get(ctx, p.siteBase+path, false)
	if err != nil {
		return "", fmt.Errorf("genius: fetch page: %w", err)
	}

	text, ok, err := extractLyrics(page)
	if err != nil {
		return "", fmt.Errorf("genius: parse page: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("genius: no lyrics container on %s: %w", path, lyrics.ErrNotFound)
	}
	return text, nil
}

func (p *Provider) search(ctx context.Context, q lyrics.Query) (string, error) {
	u := p.apiBase + "/search?" + url.Values{"q": {q.String()}}.Encode()
	body, err := p.get(ctx, u, true)
	if err != nil {
		return "", fmt.Errorf("genius: search: %w", err)
	}
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("genius: decode search response: %w", err)
	}
	if len(sr.Response.Hits) == 0 || sr.Response.Hits[0].Result.Path == "" {
		return "", fmt.Errorf("genius: no results for %q: %w", q.String(), lyrics.ErrNotFound)
	}
	return sr.Response.Hits[0].Result.Path, nil
}

func (p *Provider) get(ctx context.Context, u string, auth bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if auth {
		req.Header.Set("Authorization", "Bearer "+p.accessToken)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

// extractLyrics returns the text of the lyric container(s) on a Genius song
// page, one text node per line. Legacy pages use a single div.lyrics or
// Lyrics__Root div; current pages split the lyrics over several
// Lyrics__Container divs, which are concatenated in document order.
func extractLyrics(page []byte) (string, bool, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", false, err
	}

	var root *html.Node
	var containers []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if root != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Div {
			switch classify(n) {
			case classRoot:
				root = n
				return
			case classContainer:
				containers = append(containers, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	var parts []string
	switch {
	case root != nil:
		parts = collectText(root, parts)
	case len(containers) > 0:
		for _, c := range containers {
			parts = collectText(c, parts)
		}
	default:
		return "", false, nil
	}
	return strings.Join(parts, "\n"), true, nil
}

type divClass int

const (
	classOther divClass = iota
	classRoot
	classContainer
)

func classify(n *html.Node) divClass {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			switch {
			case c == "lyrics", strings.HasPrefix(c, "Lyrics__Root"):
				return classRoot
			case strings.HasPrefix(c, "Lyrics__Container"):
				return classContainer
			}
		}
	}
	return classOther
}

// collectText appends every text node under n to parts. Script and style
// contents are skipped.
func collectText(n *html.Node, parts []string) []string {
	switch {
	case n.Type == html.TextNode:
		return append(parts, n.Data)
	case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style):
		return parts
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		parts = collectText(c, parts)
	}
	return parts
}
