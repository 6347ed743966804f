// Package api serves the reports of one session over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/KaramelBytes/samreport-cli/internal/analysis"
	"github.com/KaramelBytes/samreport-cli/internal/dataset"
	"github.com/KaramelBytes/samreport-cli/internal/insights"
	"github.com/KaramelBytes/samreport-cli/internal/logging"
	"github.com/KaramelBytes/samreport-cli/internal/render"
	"github.com/KaramelBytes/samreport-cli/internal/session"
)

// DefaultMaxUpload caps uploaded file size.
const DefaultMaxUpload = 100 << 20

// Options configures a Server.
type Options struct {
	Session    *session.Session
	Summarizer *insights.Summarizer
	Logger     *zap.Logger
	// CORSOrigins are the browser origins allowed to call the API.
	CORSOrigins []string
	MaxUpload   int64
}

// Server exposes a session's datasets and reports.
type Server struct {
	sess      *session.Session
	sum       *insights.Summarizer
	log       *zap.Logger
	origins   []string
	maxUpload int64
}

// NewServer returns a server over o.Session, creating an empty session when nil.
func NewServer(o Options) *Server {
	log := logging.OrNop(o.Logger)
	if o.Session == nil {
		o.Session = session.New(log)
	}
	if o.Summarizer == nil {
		o.Summarizer = &insights.Summarizer{Logger: log}
	}
	if o.MaxUpload <= 0 {
		o.MaxUpload = DefaultMaxUpload
	}
	return &Server{sess: o.Session, sum: o.Summarizer, log: log, origins: o.CORSOrigins, maxUpload: o.MaxUpload}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.getSession)
		r.Post("/upload/questions", s.uploadQuestions)
		r.Post("/upload/learning", s.uploadLearning)
		r.Delete("/upload/learning", s.clearLearning)

		r.Get("/overview", s.getOverview)
		r.Get("/org", s.getOrg)
		r.Get("/keyword", s.getKeyword)
		r.Get("/users", s.getUsers)
		r.Get("/users/{id}", s.getUser)

		r.Post("/summaries/answers", s.summarizeAnswers)
		r.Post("/summaries/users/{id}", s.summarizeUser)
		r.Post("/summaries/org", s.summarizeOrg)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr), zap.String("session", s.sess.ID))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) reqField(r *http.Request) zap.Field {
	return zap.String("request_id", middleware.GetReqID(r.Context()))
}

func errField(err error) zap.Field { return zap.Error(err) }

func (s *Server) primary() (*dataset.Dataset, *dataset.Companion, error) {
	sn := s.sess.Snapshot()
	ds, err := sn.RequirePrimary()
	if err != nil {
		return nil, nil, err
	}
	return ds, sn.Companion, nil
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Snapshot().Info())
}

// readUpload returns the "file" part of a multipart upload and the read
// options given as form fields.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, dataset.ReadOptions, error) {
	var opt dataset.ReadOptions
	if r.ContentLength > s.maxUpload {
		return "", nil, opt, &http.MaxBytesError{Limit: s.maxUpload}
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", nil, opt, badRequest{fmt.Errorf("parse upload: %w", err)}
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return "", nil, opt, badRequest{fmt.Errorf("missing file field: %w", err)}
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, opt, badRequest{fmt.Errorf("read upload: %w", err)}
	}
	opt.SheetName = strings.TrimSpace(r.FormValue("sheet_name"))
	if v := strings.TrimSpace(r.FormValue("sheet_index")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return "", nil, opt, badRequest{fmt.Errorf("invalid sheet_index %q", v)}
		}
		opt.SheetIndex = n
	}
	if v := r.FormValue("delimiter"); v != "" {
		d, err := dataset.ParseDelimiter(v)
		if err != nil {
			return "", nil, opt, badRequest{err}
		}
		opt.Delimiter = d
	}
	return hdr.Filename, data, opt, nil
}

func (s *Server) uploadQuestions(w http.ResponseWriter, r *http.Request) {
	name, data, opt, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.sess.LoadPrimary(name, data, opt); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Snapshot().Info())
}

func (s *Server) uploadLearning(w http.ResponseWriter, r *http.Request) {
	name, data, opt, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.sess.LoadCompanion(name, data, opt); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Snapshot().Info())
}

func (s *Server) clearLearning(w http.ResponseWriter, r *http.Request) {
	s.sess.ClearCompanion()
	writeJSON(w, http.StatusOK, s.sess.Snapshot().Info())
}

func (s *Server) getOverview(w http.ResponseWriter, r *http.Request) {
	ds, _, err := s.primary()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, render.BuildOverview(ds))
}

// orgRequest reads the selection and level from the query string.
func orgRequest(r *http.Request) (analysis.Selection, dataset.Level, error) {
	q := r.URL.Query()
	sel := analysis.Selection{G1: q.Get("g1"), G2: q.Get("g2"), G3: q.Get("g3")}
	var lvl dataset.Level
	if v := q.Get("level"); v != "" {
		l, err := dataset.ParseLevel(v)
		if err != nil {
			return sel, 0, badRequest{err}
		}
		lvl = l
	}
	return sel, lvl, nil
}

func (s *Server) buildOrg(r *http.Request) (*render.Org, error) {
	ds, comp, err := s.primary()
	if err != nil {
		return nil, err
	}
	sel, lvl, err := orgRequest(r)
	if err != nil {
		return nil, err
	}
	return render.BuildOrg(ds, comp, sel, lvl)
}

func (s *Server) getOrg(w http.ResponseWriter, r *http.Request) {
	o, err := s.buildOrg(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) getKeyword(w http.ResponseWriter, r *http.Request) {
	ds, comp, err := s.primary()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rep, err := analysis.BuildKeywordReport(ds, comp, r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, render.Keyword{KeywordReport: rep})
}

func (s *Server) getUsers(w http.ResponseWriter, r *http.Request) {
	ds, _, err := s.primary()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := ds.Require("user directory", dataset.ColUserID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, render.NewUsers(ds))
}

func (s *Server) userProfile(r *http.Request) (*analysis.UserProfile, error) {
	ds, comp, err := s.primary()
	if err != nil {
		return nil, err
	}
	id := dataset.UserIDFromDisplay(chi.URLParam(r, "id"))
	if id == "" {
		return nil, badRequest{errors.New("user id is empty")}
	}
	return analysis.BuildUserProfile(ds, comp, id)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	up, err := s.userProfile(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &render.User{Profile: up})
}

func (s *Server) summarizeAnswers(w http.ResponseWriter, r *http.Request) {
	ds, _, err := s.primary()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.sum.ClassifyAnswers(r.Context(), ds)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) summarizeUser(w http.ResponseWriter, r *http.Request) {
	up, err := s.userProfile(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res := s.sum.UserProfile(r.Context(), up)
	writeJSON(w, http.StatusOK, &render.User{Profile: up, Summary: &res})
}

// summarizeOrg accepts the selection either in the query string or as a
// JSON body {"g1":..,"g2":..,"g3":..}.
func (s *Server) summarizeOrg(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > 0 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var sel analysis.Selection
		if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
			s.fail(w, r, badRequest{fmt.Errorf("decode selection: %w", err)})
			return
		}
		q := r.URL.Query()
		q.Set("g1", sel.G1)
		q.Set("g2", sel.G2)
		q.Set("g3", sel.G3)
		r.URL.RawQuery = q.Encode()
	}
	o, err := s.buildOrg(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res := s.sum.OrgReport(r.Context(), o.Profile)
	o.Summary = &res
	writeJSON(w, http.StatusOK, o)
}
