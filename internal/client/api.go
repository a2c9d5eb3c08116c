package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/empathyai/companion/internal/model/chat"
	"github.com/empathyai/companion/internal/model/user"
)

// API is the HTTP/websocket client for the companion backend. It implements
// Authenticator, ChatLog, ReplyService and Subscriber, plus transcription
// and feedback.
type API struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer

	mu    sync.RWMutex
	token string
}

// NewAPI builds a client for the backend at baseURL, e.g. "http://localhost:8000".
func NewAPI(baseURL string) *API {
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

type sessionPayload struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

// Login exchanges credentials for a session token.
func (a *API) Login(ctx context.Context, email, password string) (Identity, error) {
	var session sessionPayload
	err := a.postJSON(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &session)
	if err != nil {
		return Identity{}, err
	}

	a.setToken(session.Token)
	return Identity{ID: session.User.ID, Name: session.User.Name, Email: session.User.Email}, nil
}

// Signup registers an account with its profile record and signs in.
func (a *API) Signup(ctx context.Context, profile user.Profile, password string) (Identity, error) {
	var session sessionPayload
	err := a.postJSON(ctx, "/api/auth/signup", map[string]string{
		"name":     profile.Name,
		"email":    profile.Email,
		"phone":    profile.Phone,
		"password": password,
	}, &session)
	if err != nil {
		return Identity{}, err
	}

	a.setToken(session.Token)
	return Identity{ID: session.User.ID, Name: session.User.Name, Email: session.User.Email}, nil
}

// Logout drops the session token.
func (a *API) Logout(ctx context.Context) error {
	if err := a.postJSON(ctx, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	a.setToken("")
	return nil
}

// Append persists one message on the signed-in user's log.
func (a *API) Append(ctx context.Context, m chat.Message) error {
	return a.postJSON(ctx, "/api/messages", map[string]string{
		"id":      m.ID,
		"text":    m.Text,
		"sender":  string(m.Sender),
		"emotion": m.Emotion,
	}, nil)
}

// History fetches the signed-in user's full ordered log.
func (a *API) History(ctx context.Context) ([]chat.Message, error) {
	req, err := a.newRequest(ctx, http.MethodGet, "/api/messages", nil, "")
	if err != nil {
		return nil, err
	}

	var history []chat.Message
	if err := a.do(req, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// GenerateReply invokes the response-generation endpoint.
func (a *API) GenerateReply(ctx context.Context, r ReplyRequest) (string, error) {
	var payload struct {
		Response string `json:"response"`
	}
	err := a.postJSON(ctx, "/api/chat", map[string]string{
		"user_id": r.UserID,
		"text":    r.Text,
		"chat_id": r.ChatID,
		"emotion": r.Emotion,
	}, &payload)
	if err != nil {
		return "", err
	}
	return payload.Response, nil
}

// Transcribe uploads an audio buffer and returns the recognized text.
func (a *API) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := a.newRequest(ctx, http.MethodPost, "/api/transcribe", &body, writer.FormDataContentType())
	if err != nil {
		return "", err
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := a.do(req, &payload); err != nil {
		return "", err
	}
	return payload.Text, nil
}

// SendFeedback posts a thumb rating. Fire and forget from the UI's point of
// view; the caller logs failures instead of surfacing them.
func (a *API) SendFeedback(ctx context.Context, messageID string, rating int) error {
	return a.postJSON(ctx, "/api/feedback", map[string]any{
		"message_id": messageID,
		"rating":     rating,
	}, nil)
}

// DialSnapshots opens the websocket that pushes chat-log snapshots.
func (a *API) DialSnapshots(ctx context.Context) (*websocket.Conn, error) {
	wsURL, err := url.Parse(a.baseURL + "/api/messages/ws")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	switch wsURL.Scheme {
	case "http":
		wsURL.Scheme = "ws"
	case "https":
		wsURL.Scheme = "wss"
	}

	query := wsURL.Query()
	query.Set("token", a.currentToken())
	wsURL.RawQuery = query.Encode()

	conn, resp, err := a.dialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (a *API) setToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

func (a *API) currentToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

func (a *API) postJSON(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := a.newRequest(ctx, http.MethodPost, path, reader, "application/json")
	if err != nil {
		return err
	}
	return a.do(req, out)
}

func (a *API) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := a.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (a *API) do(req *http.Request, out any) error {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 512)).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("backend returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("backend returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
