package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"seqsubmit/internal/submiterr"
)

// DefaultBaseURL is the EGA submission API.
const DefaultBaseURL = "https://submission.ega-archive.org/api"

// TokenSource returns a bearer token for the next request.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// HTTPClient talks JSON to the archive API. It implements Client and FileSource.
type HTTPClient struct {
	baseURL string
	token   TokenSource
	http    *http.Client
	logger  *zap.Logger
}

var (
	_ Client     = (*HTTPClient)(nil)
	_ FileSource = (*HTTPClient)(nil)
)

// NewHTTPClient constructs a client. A nil logger discards output.
func NewHTTPClient(baseURL string, token TokenSource, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *HTTPClient) collection(submissionID string, kind Kind) string {
	if kind.Global() {
		return c.baseURL + "/" + string(kind)
	}
	return c.baseURL + "/submissions/" + submissionID + "/" + string(kind)
}

// ListEntities implements Client.
func (c *HTTPClient) ListEntities(ctx context.Context, submissionID string, kind Kind) ([]Entity, error) {
	var out []Entity
	err := c.do(ctx, "list "+string(kind), http.MethodGet, c.collection(submissionID, kind), nil, &out)
	return out, err
}

// CreateEntity implements Client. The archive answers creates with a list.
func (c *HTTPClient) CreateEntity(ctx context.Context, submissionID string, kind Kind, payload any) ([]Entity, error) {
	var out []Entity
	err := c.do(ctx, "create "+string(kind), http.MethodPost, c.collection(submissionID, kind), payload, &out)
	return out, err
}

// Finalize implements Client.
func (c *HTTPClient) Finalize(ctx context.Context, submissionID string, req FinalizeRequest) error {
	return c.do(ctx, "finalize", http.MethodPost, c.baseURL+"/submissions/"+submissionID+"/finalise", req, nil)
}

// ListInboxFiles implements FileSource. The inbox is per account; submissionID
// only scopes log output.
func (c *HTTPClient) ListInboxFiles(ctx context.Context, submissionID string) ([]File, error) {
	var out []File
	if err := c.do(ctx, "list files", http.MethodGet, c.collection(submissionID, KindFiles), nil, &out); err != nil {
		return nil, err
	}
	c.logger.Debug("inbox listed", zap.String("submission", submissionID), zap.Int("files", len(out)))
	return out, nil
}

func (c *HTTPClient) do(ctx context.Context, step, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode payload: %w", step, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return fmt.Errorf("%s: token: %w", step, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &submiterr.RemoteError{Step: step, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &submiterr.RemoteError{Step: step, Status: resp.StatusCode, Err: err}
	}
	c.logger.Debug("archive call",
		zap.String("step", step),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &submiterr.RemoteError{Step: step, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return decodeList(step, data, out)
}

// decodeList accepts either a JSON array or a single object for list targets.
func decodeList(step string, data []byte, out any) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		data = append(append([]byte{'['}, data...), ']')
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &submiterr.RemoteError{Step: step, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
