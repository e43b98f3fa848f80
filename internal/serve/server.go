package serve

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"kumo/internal/app"
	"kumo/internal/artifact"
	"kumo/internal/domain/config"
	"kumo/internal/index"
)

type Server struct {
	cfg  config.Config
	site *app.Site
	idx  *index.Store

	sseMu     sync.Mutex
	sseConns  map[chan string]struct{}
	watcher   *fsnotify.Watcher
	watchOnce sync.Once
	debounce  time.Duration
}

func New(cfg config.Config) (*Server, error) {
	st, err := index.Open(index.OpenOptions{Path: cfg.Serve.IndexPath})
	if err != nil {
		return nil, errors.Wrap(err, "serve: failed to open index")
	}
	site, err := app.NewSite(cfg, st)
	if err != nil {
		_ = st.Close()
		return nil, errors.Wrap(err, "serve: failed to create site")
	}
	site.DevReload = cfg.Serve.Watch && site.Remote == nil

	return &Server{
		cfg:      cfg,
		site:     site,
		idx:      st,
		sseConns: make(map[chan string]struct{}),
		debounce: 200 * time.Millisecond,
	}, nil
}

func (s *Server) Close() error {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.idx != nil {
		return s.idx.Close()
	}
	return nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/articles/", s.handleArticle)
	mux.HandleFunc("/tags", s.handleTagsRoot)
	mux.HandleFunc("/tags/", s.handleTag)
	mux.HandleFunc("/css/highlight.css", s.handleStylesheet)
	mux.HandleFunc("/data/", s.handleData)

	// dev SSE
	mux.HandleFunc("/dev/events", s.handleSSE)

	staticDir := filepath.Join(s.cfg.Build.ThemeDir, s.cfg.Site.Theme, "static")
	fileServer := http.FileServer(http.Dir(staticDir))

	mux.Handle("/css/", fileServer)
	mux.Handle("/js/", fileServer)
	mux.Handle("/images/", fileServer)
	mux.Handle("/favicon.ico", fileServer)

	if base := strings.TrimSuffix(s.cfg.Build.BasePath, "/"); base != "" {
		root := http.NewServeMux()
		root.Handle(base+"/", http.StripPrefix(base, mux))
		return root
	}
	return mux
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Rebuild(); err != nil {
		return err
	}

	if s.site.DevReload {
		if err := s.startWatch(ctx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              s.cfg.Serve.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[serve] listening on %s", s.cfg.Serve.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Rebuild re-ingests the sources and tells connected pages to reload.
// Remote mode has nothing local to ingest.
func (s *Server) Rebuild() error {
	if s.site.Remote != nil {
		log.Printf("[serve] reading articles from %s", s.cfg.Serve.ArtifactURL)
		return nil
	}
	log.Printf("[serve] ingest from %s ...", s.cfg.Build.SourceDir)
	arts, err := s.site.Reindex()
	if err != nil {
		return err
	}
	log.Printf("[serve] ingested %d articles", len(arts))
	s.broadcastSSE("reload")
	return nil
}

func (s *Server) startWatch(ctx context.Context) error {
	var err error
	s.watchOnce.Do(func() {
		w, e := fsnotify.NewWatcher()
		if e != nil {
			err = errors.Wrap(e, "serve: watcher")
			return
		}
		s.watcher = w

		err = filepath.Walk(s.cfg.Build.SourceDir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return w.Add(path)
			}
			return nil
		})
		if err != nil {
			err = errors.Wrapf(err, "serve: watch %s", s.cfg.Build.SourceDir)
			return
		}
		go s.watchLoop(ctx)
	})
	return err
}

func (s *Server) watchLoop(ctx context.Context) {
	log.Printf("[serve] watching for file changes ...")
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = s.watcher.Add(ev.Name)
				}
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				debounce.Reset(s.debounce)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[warn] watcher error: %v", err)
		case <-debounce.C:
			if err := s.Rebuild(); err != nil {
				log.Printf("[serve] rebuild error: %v", err)
			}
		}
	}
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan string, 8)

	s.sseMu.Lock()
	s.sseConns[ch] = struct{}{}
	s.sseMu.Unlock()

	defer func() {
		s.sseMu.Lock()
		delete(s.sseConns, ch)
		close(ch)
		s.sseMu.Unlock()
	}()
	fmt.Fprintf(w, ": %s\n\n", "hello")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) broadcastSSE(msg string) {
	s.sseMu.Lock()
	defer s.sseMu.Unlock()
	for ch := range s.sseConns {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.handleNotFound(w, r)
		return
	}
	s.writePage(w, r, func(ctx context.Context) ([]byte, error) {
		return s.site.HomePage(ctx)
	})
}

// /articles/<slug>/ or /articles/<slug>, ?section=<id> marks a TOC entry
func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	slug := strings.Trim(strings.TrimPrefix(r.URL.Path, "/articles/"), "/")
	if slug == "" || strings.Contains(slug, "/") {
		s.handleNotFound(w, r)
		return
	}
	section := r.URL.Query().Get("section")
	s.writePage(w, r, func(ctx context.Context) ([]byte, error) {
		return s.site.ArticlePage(ctx, slug, section)
	})
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	tag := strings.Trim(strings.TrimPrefix(r.URL.Path, "/tags/"), "/")
	if tag == "" {
		s.handleTagsRoot(w, r)
		return
	}
	s.writePage(w, r, func(ctx context.Context) ([]byte, error) {
		return s.site.TagPage(ctx, tag)
	})
}

func (s *Server) handleTagsRoot(w http.ResponseWriter, r *http.Request) {
	s.writePage(w, r, func(ctx context.Context) ([]byte, error) {
		return s.site.TagsPage(ctx)
	})
}

func (s *Server) handleStylesheet(w http.ResponseWriter, r *http.Request) {
	css, err := s.site.Stylesheet()
	if err != nil {
		log.Printf("[serve] highlight css: %v", err)
		http.Error(w, "highlight css error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write([]byte(css))
}

// handleData serves the artifact JSON a static build would publish.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/data/")
	var (
		v   any
		err error
	)
	switch {
	case rel == "articles.json":
		v, err = s.articleEntries()
	case strings.HasPrefix(rel, "articles/") && strings.HasSuffix(rel, ".json"):
		v, err = s.articleArtifact(strings.TrimSuffix(strings.TrimPrefix(rel, "articles/"), ".json"))
	case rel == "themes.json":
		v, err = s.themeIndex()
	case strings.HasPrefix(rel, "themes/") && strings.HasSuffix(rel, ".json"):
		v, err = s.themeFile(strings.TrimSuffix(strings.TrimPrefix(rel, "themes/"), ".json"))
	default:
		err = index.ErrNotFound
	}
	if err != nil {
		if isNotFound(err) {
			http.NotFound(w, r)
			return
		}
		log.Printf("[serve] data %s: %v", rel, err)
		http.Error(w, "data error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) articleEntries() ([]artifact.ArticleEntry, error) {
	metas, err := s.idx.List(index.ListOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]artifact.ArticleEntry, 0, len(metas))
	for _, m := range metas {
		out = append(out, artifact.EntryFor(m))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ModifiedDate.After(out[j].ModifiedDate) })
	return out, nil
}

func (s *Server) articleArtifact(slug string) (artifact.Article, error) {
	a, err := s.idx.Get(slug)
	if err != nil {
		return artifact.Article{}, err
	}
	return s.site.Artifact(a)
}

func (s *Server) themeIndex() (artifact.ThemeIndex, error) {
	themes, err := s.site.Themes()
	if err != nil {
		return artifact.ThemeIndex{}, err
	}
	idx := artifact.ThemeIndex{Default: s.site.Theme.ID}
	for _, t := range themes {
		idx.Themes = append(idx.Themes, t.Summary())
	}
	return idx, nil
}

func (s *Server) themeFile(id string) (any, error) {
	themes, err := s.site.Themes()
	if err != nil {
		return nil, err
	}
	for _, t := range themes {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, index.ErrNotFound
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, build func(context.Context) ([]byte, error)) {
	htmlBytes, err := build(r.Context())
	if err != nil {
		if isNotFound(err) {
			s.handleNotFound(w, r)
			return
		}
		s.handleError(w, r, err)
		return
	}
	writeHTML(w, htmlBytes)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	htmlBytes, err := s.site.NotFoundPage(r.Context(), r.URL.Path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(htmlBytes)
}

// handleError shows the failed-to-load page in place of the content.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, cause error) {
	log.Printf("[serve] %s: %v", r.URL.Path, cause)
	htmlBytes, err := s.site.ErrorPage(r.Context(), "The article could not be loaded.")
	if err != nil {
		http.Error(w, "failed to load", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write(htmlBytes)
}

func isNotFound(err error) bool {
	return errors.Is(err, index.ErrNotFound) || errors.Is(err, artifact.ErrNotFound)
}

func writeHTML(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}
