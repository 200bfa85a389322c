package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/theravid/theravid/internal/utils"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

func newClient(srv *httptest.Server, token string) *Client {
	return New(srv.URL, func() string { return token }, testLog())
}

func TestEmotionListAcceptsStringOrArray(t *testing.T) {
	var res AnalysisResult
	if err := json.Unmarshal([]byte(`{"emotions":["happy","calm"],"response":"ok"}`), &res); err != nil {
		t.Fatalf("array form: %v", err)
	}
	if len(res.Emotions) != 2 || res.Emotions[0] != "happy" {
		t.Fatalf("array form parsed as %v", res.Emotions)
	}

	res = AnalysisResult{}
	if err := json.Unmarshal([]byte(`{"emotions":"happy"}`), &res); err != nil {
		t.Fatalf("string form: %v", err)
	}
	if len(res.Emotions) != 1 || res.Emotions[0] != "happy" {
		t.Fatalf("string form parsed as %v", res.Emotions)
	}
}

func TestAnalyzeRecordingPostsMultipart(t *testing.T) {
	var gotName, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/record" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		f, fh, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			http.Error(w, "no file", http.StatusBadRequest)
			return
		}
		defer f.Close()
		gotName = fh.Filename
		gotType = fh.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(f)
		_ = json.NewEncoder(w).Encode(map[string]any{"emotions": []string{"calm"}, "response": "Well done."})
	}))
	defer srv.Close()

	c := newClient(srv, "")
	res, err := c.AnalyzeRecording(context.Background(), Clip{
		Name:     "checkin-1.webm",
		MimeType: "video/webm",
		Data:     []byte("clip-bytes"),
	})
	if err != nil {
		t.Fatalf("AnalyzeRecording failed: %v", err)
	}
	if gotName != "checkin-1.webm" || gotType != "video/webm" || string(gotBody) != "clip-bytes" {
		t.Fatalf("upload mismatch: name=%q type=%q body=%q", gotName, gotType, gotBody)
	}
	if res.Response != "Well done." || len(res.Emotions) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSendMessageCarriesSessionAndText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("session"); got != "sess-1" {
			t.Errorf("session = %q", got)
		}
		if got := r.FormValue("text"); got != "hello" {
			t.Errorf("text = %q", got)
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Session: "sess-1",
			Reply:   "hi",
			History: []Message{{Role: "user", Content: "hello"}, {Role: "assistant", Content: "hi"}},
		})
	}))
	defer srv.Close()

	c := newClient(srv, "")
	resp, err := c.SendMessage(context.Background(), "sess-1", "hello", nil)
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if resp.Reply != "hi" || len(resp.History) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestErrorDecodePrefersDetailThenErrorThenRaw(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"error":"analysis failed","detail":"stt exploded"}`, "stt exploded"},
		{`{"error":"analysis failed"}`, "analysis failed"},
		{`plain text failure`, "plain text failure"},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(tc.body))
		}))
		c := newClient(srv, "")
		_, err := c.History(context.Background(), "s")
		srv.Close()
		if err == nil {
			t.Fatalf("expected error for body %q", tc.body)
		}
		if got := utils.Message(err); got != tc.want {
			t.Fatalf("body %q decoded as %q, want %q", tc.body, got, tc.want)
		}
		if !utils.IsCode(err, utils.CodeUnavailable) {
			t.Fatalf("non-2xx should map to UNAVAILABLE, got %v", err)
		}
	}
}

func TestMeUnauthorizedMapsToAuthRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Missing token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newClient(srv, "")
	_, err := c.Me(context.Background())
	if !utils.IsCode(err, utils.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestMeSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(Me{ID: "u1", Email: "a@b.c"})
	}))
	defer srv.Close()

	c := newClient(srv, "tok-123")
	me, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if me.ID != "u1" {
		t.Fatalf("unexpected me %+v", me)
	}
}

func TestUpdatePreferencesSendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/preferences" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["goal"] != "sleep" || body["mood"] != "calm" {
			t.Errorf("body = %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer srv.Close()

	c := newClient(srv, "tok")
	if err := c.UpdatePreferences(context.Background(), "sleep", "calm"); err != nil {
		t.Fatalf("UpdatePreferences failed: %v", err)
	}
}
