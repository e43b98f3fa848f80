package ingest

import (
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"kumo/internal/domain/content"
)

type Warning struct {
	Path string
	Msg  string
}

type Result struct {
	Article content.Article
	Warns   []Warning
	Skip    bool
	Err     error
}

type Options struct {
	SourceDir    string
	IncludeDraft bool
	// Workers defaults to GOMAXPROCS.
	Workers int
}

// Ingest reads every Markdown file under opts.SourceDir into article metadata,
// newest first. Bodies stay on disk; Load reads them back.
func Ingest(opts Options) ([]content.Article, []Warning, error) {
	files, err := DiscoverSource(opts.SourceDir)
	if err != nil {
		return nil, nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	jobs := make(chan SourceFile)
	results := make(chan Result)

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sf := range jobs {
				results <- ingestFile(sf, opts)
			}
		}()
	}

	go func() {
		for _, f := range files {
			jobs <- f
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var out []content.Article
	var warns []Warning
	var firstErr error
	for r := range results {
		if r.Err != nil {
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		warns = append(warns, r.Warns...)
		if r.Skip {
			continue
		}
		out = append(out, r.Article)
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Meta, out[j].Meta
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.Slug < b.Slug
	})

	seen := make(map[string]struct{}, len(out))
	filtered := make([]content.Article, 0, len(out))
	for _, a := range out {
		if _, ok := seen[a.Meta.Slug]; ok {
			warns = append(warns, Warning{Path: a.Body.SourcePath, Msg: "duplicate slug, skipped: " + a.Meta.Slug})
			continue
		}
		seen[a.Meta.Slug] = struct{}{}
		filtered = append(filtered, a)
	}
	return filtered, warns, nil
}

func ingestFile(sf SourceFile, opts Options) Result {
	st, err := os.Stat(sf.Path)
	if err != nil {
		return Result{Err: errors.Wrapf(err, "stat %s", sf.Path)}
	}
	raw, err := os.ReadFile(sf.Path)
	if err != nil {
		return Result{Err: errors.Wrapf(err, "read %s", sf.Path)}
	}

	var warns []Warning
	fm, _, fmErr := ParseFrontMatter(raw)
	switch {
	case errors.Is(fmErr, errNoFrontMatter):
		warns = append(warns, Warning{Path: sf.Path, Msg: "no front matter, using defaults"})
	case fmErr != nil:
		warns = append(warns, Warning{Path: sf.Path, Msg: "failed to parse front matter: " + fmErr.Error()})
		return Result{Warns: warns, Skip: true}
	}
	if fm.Draft && !opts.IncludeDraft {
		return Result{Skip: true}
	}

	slug := ResolveSlug(sf.Path)
	if slug == "" || strings.ContainsAny(slug, "/\\?#") {
		warns = append(warns, Warning{Path: sf.Path, Msg: "unusable slug " + slug})
		return Result{Warns: warns, Skip: true}
	}

	name := st.Name()
	meta := content.ArticleMeta{
		Title:    fm.Title,
		Slug:     slug,
		Filename: name,
		Author:   fm.Author,
		Tags:     fm.Tags,
		Draft:    fm.Draft,
		Links: content.Links{
			Colab: fm.ColabURL,
			Demo:  fm.DemoURL,
			Repo:  fm.RepoURL,
		},
		Gradient: fm.Gradient,
		Emoji:    fm.Emoji,
	}
	meta.Modified = st.ModTime().In(time.Local)
	meta.Date = ParseTime(fm.Date)
	if meta.Date.IsZero() {
		meta.Date = meta.Modified
		if fm.Date != "" {
			warns = append(warns, Warning{Path: sf.Path, Msg: "unparseable date " + fm.Date + ", using file modification time"})
		}
	}
	meta.Normalize()

	return Result{
		Article: content.Article{
			Meta: meta,
			Body: content.BodyRef{
				SourcePath:  sf.Path,
				ContentHash: HashBytes(raw),
			},
		},
		Warns: warns,
	}
}

// Load returns the Markdown body and raw source of an ingested article.
func Load(a content.Article) (body, raw []byte, err error) {
	raw, err = os.ReadFile(a.Body.SourcePath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read %s", a.Body.SourcePath)
	}
	_, body, fmErr := ParseFrontMatter(raw)
	if fmErr != nil && !errors.Is(fmErr, errNoFrontMatter) {
		return nil, nil, errors.Wrapf(fmErr, "front matter %s", a.Body.SourcePath)
	}
	return body, raw, nil
}
