// Package api is the HTTP client for the check-in backend. Every call is a
// single attempt: failures surface to the caller, nothing is retried.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theravid/theravid/internal/utils"
)

// Message is one entry of a chat session's visible history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	TS      int64  `json:"ts,omitempty"`
}

// EmotionList tolerates the backend returning either a list of labels or a
// single label string.
type EmotionList []string

func (e *EmotionList) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*e = list
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if one == "" {
			*e = nil
		} else {
			*e = []string{one}
		}
		return nil
	}
	return fmt.Errorf("emotions: expected string or []string, got %s", string(b))
}

// AnalysisResult is the response of POST /record.
type AnalysisResult struct {
	Emotions EmotionList `json:"emotions"`
	Response string      `json:"response"`
}

// ChatResponse is the response of POST /chat and GET /chat.
type ChatResponse struct {
	Session string    `json:"session"`
	Reply   string    `json:"reply"`
	History []Message `json:"history"`
}

// Me is the authenticated profile returned by GET /api/me.
type Me struct {
	ID    string `json:"id"`
	First string `json:"first"`
	Last  string `json:"last"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Goal  string `json:"goal"`
	Mood  string `json:"mood"`
}

// Clip is a recorded artifact wrapped as a file-like upload payload.
type Clip struct {
	Name     string
	MimeType string
	Data     []byte
}

type Client struct {
	base  string
	http  *http.Client
	token func() string
	log   *logrus.Entry
}

// New builds a client for the backend at baseURL. token supplies the bearer
// token for the /api endpoints; it may return "" when signed out.
func New(baseURL string, token func() string, log *logrus.Entry) *Client {
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		http:  &http.Client{Timeout: 2 * time.Minute},
		token: token,
		log:   log,
	}
}

// AnalyzeRecording posts a finished check-in recording to /record.
func (c *Client) AnalyzeRecording(ctx context.Context, clip Clip) (*AnalysisResult, error) {
	const op = "api.AnalyzeRecording"

	body, contentType, err := multipartBody(map[string]string{}, &clip)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to build upload", err)
	}

	var out AnalysisResult
	if err := c.do(ctx, op, http.MethodPost, "/record", body, contentType, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage posts one chat message, text and/or video clip, to /chat.
func (c *Client) SendMessage(ctx context.Context, session, text string, clip *Clip) (*ChatResponse, error) {
	const op = "api.SendMessage"

	fields := map[string]string{"session": session}
	if text != "" {
		fields["text"] = text
	}
	body, contentType, err := multipartBody(fields, clip)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to build message", err)
	}

	var out ChatResponse
	if err := c.do(ctx, op, http.MethodPost, "/chat", body, contentType, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History fetches the existing history for a session, if any.
func (c *Client) History(ctx context.Context, session string) ([]Message, error) {
	const op = "api.History"

	var out ChatResponse
	path := "/chat?session=" + url.QueryEscape(session)
	if err := c.do(ctx, op, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// Me fetches the signed-in user's profile. A 401 comes back coded
// UNAUTHORIZED so the caller can redirect to sign-in.
func (c *Client) Me(ctx context.Context) (*Me, error) {
	const op = "api.Me"

	var out Me
	if err := c.do(ctx, op, http.MethodGet, "/api/me", nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePreferences stores the user's goal and mood.
func (c *Client) UpdatePreferences(ctx context.Context, goal, mood string) error {
	const op = "api.UpdatePreferences"

	b, _ := json.Marshal(map[string]string{"goal": goal, "mood": mood})
	var out struct {
		OK bool `json:"ok"`
	}
	return c.do(ctx, op, http.MethodPut, "/api/preferences", bytes.NewReader(b), "application/json", &out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to build request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(op, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return utils.E(utils.CodeUnavailable, op, "invalid response body", err)
	}
	return nil
}

// decodeError extracts {error|detail} from a non-2xx body, falling back to
// the raw text.
func (c *Client) decodeError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(raw))

	var payload struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		switch {
		case payload.Detail != "":
			msg = payload.Detail
		case payload.Error != "":
			msg = payload.Error
		case payload.Message != "":
			msg = payload.Message
		}
	}
	if msg == "" {
		msg = resp.Status
	}

	code := utils.CodeUnavailable
	if resp.StatusCode == http.StatusUnauthorized {
		code = utils.CodeUnauthorized
	}
	c.log.WithFields(logrus.Fields{"status": resp.StatusCode, "op": op}).Warn("backend call failed")
	return utils.E(code, op, msg, nil)
}

func multipartBody(fields map[string]string, clip *Clip) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if clip != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, clip.Name))
		ct := clip.MimeType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(clip.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
