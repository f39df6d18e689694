// Package file provides a lyrics.Provider that reads lyric text from a local
// directory.
//
// Files are looked up by a slug of the query: "<artist>-<title>.txt" first,
// then "<title>.txt". Slugs are lowercase with every run of non-alphanumeric
// characters collapsed to a single hyphen, so "Simon & Garfunkel" and
// "The Sound of Silence" resolve to
// "simon-garfunkel-the-sound-of-silence.txt". Files may be UTF-8 (with or
// without BOM) or UTF-16 with a BOM.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/MrWong99/lyricsync/pkg/provider/lyrics"
)

// Compile-time assertion that Provider implements lyrics.Provider.
var _ lyrics.Provider = (*Provider)(nil)

// Provider implements lyrics.Provider over a directory of text files.
type Provider struct {
	dir string
	ext string
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithExtension sets the file extension searched for. Defaults to ".txt".
func WithExtension(ext string) Option {
	return func(p *Provider) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		p.ext = ext
	}
}

// New creates a Provider rooted at dir. dir must exist and be a directory.
func New(dir string, opts ...Option) (*Provider, error) {
	if dir == "" {
		return nil, errors.New("file: directory must not be empty")
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("file: stat %s: %w", dir, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("file: %s is not a directory", dir)
	}
	p := &Provider{dir: dir, ext: ".txt"}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Lookup returns the contents of the first candidate file that exists.
func (p *Provider) Lookup(ctx context.Context, q lyrics.Query) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, name := range p.candidates(q) {
		text, err := ReadFile(filepath.Join(p.dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		return text, nil
	}
	return "", fmt.Errorf("file: no lyrics for %q in %s: %w", q.String(), p.dir, lyrics.ErrNotFound)
}

func (p *Provider) candidates(q lyrics.Query) []string {
	var out []string
	if s := Slug(q.Artist + " " + q.Title); s != "" && strings.TrimSpace(q.Artist) != "" {
		out = append(out, s+p.ext)
	}
	if s := Slug(q.Title); s != "" {
		out = append(out, s+p.ext)
	}
	return out
}

// ReadFile reads a lyric file and decodes it to UTF-8, honouring a leading
// byte order mark.
func ReadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("file: open: %w", err)
	}
	defer f.Close()

	dec := xunicode.BOMOverride(xunicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(f, dec))
	if err != nil {
		return "", fmt.Errorf("file: decode %s: %w", path, err)
	}
	return string(data), nil
}

// Slug lowercases s and collapses each run of characters that are not
// letters or digits into one hyphen.
func Slug(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
