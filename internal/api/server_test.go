package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KaramelBytes/samreport-cli/internal/ai"
	"github.com/KaramelBytes/samreport-cli/internal/insights"
	"github.com/KaramelBytes/samreport-cli/internal/session"
)

const qaCSV = `user_id,user_name,question,answer,answer_yn,group_1,group_2,group_3,regymdt,chat_title
1,Kim,budget plan,see finance,Y,C1,D1,T1,2024-01-05,Finance
2,Lee,vpn access,,N,C1,D2,T2,2024-02-10,IT
3,Park,budget review,ok,Y,C2,D3,T3,2024-02-11,Finance
`

const learningCSV = "user_id,title\n1,Excel Basics\n3,Excel Basics\n9,Other\n"

type stubRuntime struct{}

func (stubRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Content: "summary"}}}}, nil
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	s := NewServer(Options{
		Session:     session.New(nil),
		Summarizer:  &insights.Summarizer{Runtime: stubRuntime{}, Model: "m"},
		CORSOrigins: []string{"http://localhost:3000"},
	})
	return s, s.Handler()
}

func upload(t *testing.T, h http.Handler, path, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestHealthAndEmptySession(t *testing.T) {
	_, h := newTestServer(t)
	if rec := do(h, http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthz=%d", rec.Code)
	}
	rec := do(h, http.MethodGet, "/api/overview")
	if rec.Code != http.StatusConflict || decode(t, rec)["kind"] != "no_data" {
		t.Fatalf("overview without data: %d %s", rec.Code, rec.Body)
	}
	if m := decode(t, do(h, http.MethodGet, "/api/session")); m["state"] != "empty" {
		t.Fatalf("session=%v", m)
	}
}

func TestUploadAndReports(t *testing.T) {
	_, h := newTestServer(t)
	if rec := upload(t, h, "/api/upload/questions", "qa.csv", qaCSV); rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body)
	}
	if rec := upload(t, h, "/api/upload/learning", "l.csv", learningCSV); rec.Code != http.StatusOK {
		t.Fatalf("upload learning: %d %s", rec.Code, rec.Body)
	}

	ov := decode(t, do(h, http.MethodGet, "/api/overview"))
	if ov["overview"].(map[string]any)["questions"].(float64) != 3 {
		t.Fatalf("overview=%v", ov)
	}

	org := decode(t, do(h, http.MethodGet, "/api/org?g1=C1&level=group_2"))
	groups := org["groups"].([]any)
	if len(groups) != 2 || org["level"] != "group_2" {
		t.Fatalf("org=%v", org)
	}

	kw := decode(t, do(h, http.MethodGet, "/api/keyword?q=budget"))
	if kw["matches"].(float64) != 2 {
		t.Fatalf("keyword=%v", kw)
	}
	learning := kw["learning"].(map[string]any)
	if learning["summary"].(map[string]any)["enrollments"].(float64) != 2 {
		t.Fatalf("learning=%v", learning)
	}

	users := decode(t, do(h, http.MethodGet, "/api/users"))
	if len(users["users"].([]any)) != 3 {
		t.Fatalf("users=%v", users)
	}
	user := decode(t, do(h, http.MethodGet, "/api/users/1"))
	profile := user["profile"].(map[string]any)
	if profile["total"].(float64) != 1 {
		t.Fatalf("user=%v", user)
	}
	rows := profile["learning"].([]any)
	row := rows[0].(map[string]any)
	if row["title"] != "Excel Basics" || row["user_id"] != "1" || len(row["values"].([]any)) != 2 {
		t.Fatalf("learning row=%v", row)
	}
}

func TestStatusMapping(t *testing.T) {
	_, h := newTestServer(t)
	upload(t, h, "/api/upload/questions", "qa.csv", "user_id,question\n1,budget\n")

	rec := do(h, http.MethodGet, "/api/org")
	if rec.Code != http.StatusUnprocessableEntity || decode(t, rec)["kind"] != "missing_column" {
		t.Fatalf("org on missing columns: %d %s", rec.Code, rec.Body)
	}
	rec = do(h, http.MethodGet, "/api/keyword?q=")
	if rec.Code != http.StatusBadRequest || decode(t, rec)["kind"] != "empty_keyword" {
		t.Fatalf("empty keyword: %d %s", rec.Code, rec.Body)
	}
	rec = do(h, http.MethodGet, "/api/keyword?q=nothing")
	if rec.Code != http.StatusOK || decode(t, rec)["matches"].(float64) != 0 {
		t.Fatalf("no matches should be 200: %d %s", rec.Code, rec.Body)
	}

	upload(t, h, "/api/upload/questions", "qa.csv", qaCSV)
	rec = do(h, http.MethodGet, "/api/org?g1=C9")
	if rec.Code != http.StatusBadRequest || decode(t, rec)["kind"] != "selection" {
		t.Fatalf("bad selection: %d %s", rec.Code, rec.Body)
	}
	rec = do(h, http.MethodGet, "/api/org?g2=D1&level=group_1")
	if rec.Code != http.StatusBadRequest || decode(t, rec)["kind"] != "level_not_allowed" {
		t.Fatalf("level: %d %s", rec.Code, rec.Body)
	}
	rec = do(h, http.MethodGet, "/api/org?level=bogus")
	if rec.Code != http.StatusBadRequest || decode(t, rec)["kind"] != "bad_request" {
		t.Fatalf("bogus level: %d %s", rec.Code, rec.Body)
	}
}

func TestFailedUploadKeepsData(t *testing.T) {
	s, h := newTestServer(t)
	upload(t, h, "/api/upload/questions", "qa.csv", qaCSV)
	rec := upload(t, h, "/api/upload/questions", "qa.xlsx", "not a workbook")
	if rec.Code != http.StatusBadRequest || decode(t, rec)["kind"] != "file" {
		t.Fatalf("bad upload: %d %s", rec.Code, rec.Body)
	}
	if sn := s.sess.Snapshot(); sn.Primary == nil || sn.Primary.Len() != 3 {
		t.Fatalf("previous data lost")
	}
	upload(t, h, "/api/upload/learning", "l.csv", learningCSV)
	if rec := do(h, http.MethodDelete, "/api/upload/learning"); rec.Code != http.StatusOK {
		t.Fatalf("clear: %d", rec.Code)
	}
	if s.sess.Snapshot().Companion != nil {
		t.Fatal("companion not cleared")
	}
}

func TestSummaries(t *testing.T) {
	_, h := newTestServer(t)
	upload(t, h, "/api/upload/questions", "qa.csv", qaCSV)

	c := decode(t, do(h, http.MethodPost, "/api/summaries/answers"))
	if c["answered"].(map[string]any)["text"] != "summary" || c["unanswered_total"].(float64) != 1 {
		t.Fatalf("classification=%v", c)
	}

	u := decode(t, do(h, http.MethodPost, "/api/summaries/users/1"))
	if u["summary"].(map[string]any)["text"] != "summary" {
		t.Fatalf("user summary=%v", u)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/summaries/org", strings.NewReader(`{"g1":"C1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	o := decode(t, rec)
	if o["path"] != "C1/all/all" || o["summary"].(map[string]any)["text"] != "summary" {
		t.Fatalf("org summary=%v", o)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/overview", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestUploadTooLarge(t *testing.T) {
	s := NewServer(Options{Session: session.New(nil), MaxUpload: 64})
	h := s.Handler()
	rec := upload(t, h, "/api/upload/questions", "qa.csv", qaCSV)
	if rec.Code != http.StatusRequestEntityTooLarge || decode(t, rec)["kind"] != "too_large" {
		t.Fatalf("oversized upload: %d %s", rec.Code, rec.Body)
	}
	if s.sess.Snapshot().Primary != nil {
		t.Fatal("oversized upload was loaded")
	}
}
