package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cwrk-planet/studyroom/internal/domain"
	"github.com/cwrk-planet/studyroom/pkg/httputil"

	"github.com/tidwall/gjson"
)

// HTTPClient is the REST counterpart of GRPCClient.
type HTTPClient struct {
	base  string
	token string
	hc    *http.Client
}

var _ RoomAPI = (*HTTPClient)(nil)

func NewHTTP(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		base:  strings.TrimRight(baseURL, "/"),
		token: token,
		hc:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in any) ([]byte, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if rid, ok := httputil.FromContext(ctx); ok {
		req.Header.Set(httputil.HeaderRequestID, rid)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode >= 400 {
		return nil, fromHTTPStatus(resp.StatusCode, gjson.GetBytes(raw, "error.message").String())
	}

	data := gjson.GetBytes(raw, "data")
	if !data.Exists() {
		return nil, fmt.Errorf("%w: response without data", ErrUpstream)
	}
	return []byte(data.Raw), nil
}

func (c *HTTPClient) GetRoom(ctx context.Context, roomID string) (Snapshot, error) {
	raw, err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(roomID), nil)
	if err != nil {
		return Snapshot{}, err
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decode room: %v", ErrUpstream, err)
	}
	return s, nil
}

func (c *HTTPClient) ControlTimer(ctx context.Context, roomID string, action domain.TimerAction) (Snapshot, error) {
	in := map[string]string{"action": string(action)}
	raw, err := c.do(ctx, http.MethodPost, "/rooms/"+url.PathEscape(roomID)+"/timer", in)
	if err != nil {
		return Snapshot{}, err
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decode room: %v", ErrUpstream, err)
	}
	return s, nil
}

func (c *HTTPClient) ListTasks(ctx context.Context, roomID string) ([]Task, error) {
	raw, err := c.do(ctx, http.MethodGet, "/rooms/"+url.PathEscape(roomID)+"/tasks", nil)
	if err != nil {
		return nil, err
	}
	var res struct {
		Items []Task `json:"items"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: decode tasks: %v", ErrUpstream, err)
	}
	return res.Items, nil
}

func fromHTTPStatus(code int, msg string) error {
	switch code {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrUnauthenticated, msg)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, code, msg)
	}
}
