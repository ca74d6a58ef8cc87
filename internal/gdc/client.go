// Package gdc talks to the Genomic Data Commons submission API: registration
// and file-state lookups through its GraphQL endpoint, and transactional
// metadata submission (dry run, then commit or close).
package gdc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"seqsubmit/internal/archive"
	"seqsubmit/internal/inbox"
	"seqsubmit/internal/submiterr"
)

// DefaultEndpoint is the GDC submission API.
const DefaultEndpoint = "https://api.gdc.cancer.gov/v0/submission"

// Client is scoped to one program/project pair.
type Client struct {
	endpoint string
	program  string
	project  string
	token    archive.TokenSource
	http     *http.Client
	logger   *zap.Logger
}

// NewClient constructs a client. A nil logger discards output.
func NewClient(endpoint, program, project string, token archive.TokenSource, timeout time.Duration, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		program:  program,
		project:  project,
		token:    token,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// ProjectID is the "<program>-<project>" id GDC filters entities by.
func (c *Client) ProjectID() string { return c.program + "-" + c.project }

// VerifyAliquot returns the GDC id of the aliquot registered under alias.
func (c *Client) VerifyAliquot(ctx context.Context, alias string) (string, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	if err := c.query(ctx, "gdc verify aliquot", "aliquot", alias, nil, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("%w: aliquot %q in GDC project %s", submiterr.ErrSampleNotRegistered, alias, c.ProjectID())
	}
	return rows[0].ID, nil
}

// FileStatus is GDC's view of a submitted aligned reads file.
type FileStatus struct {
	ID          string `json:"id"`
	SubmitterID string `json:"submitter_id"`
	State       string `json:"state"`
	FileState   string `json:"file_state"`
	ErrorType   string `json:"error_type,omitempty"`
}

// File states reported once upload processing has finished.
const (
	FileStateValidated = "validated"
	FileStateError     = "error"
)

// Status maps the file state onto the status labels the inbox check uses.
func (s FileStatus) Status() inbox.Status {
	if s.FileState == FileStateValidated {
		return inbox.StatusValidated
	}
	return inbox.StatusIncomplete
}

// FileStatus looks up the submitted aligned reads entity for submitterID.
func (c *Client) FileStatus(ctx context.Context, submitterID string) (FileStatus, error) {
	var rows []FileStatus
	fields := []string{"submitter_id", "state", "file_state", "error_type"}
	if err := c.query(ctx, "gdc file status", "submitted_aligned_reads", submitterID, fields, &rows); err != nil {
		return FileStatus{}, err
	}
	if len(rows) == 0 {
		return FileStatus{}, fmt.Errorf("%w: submitted aligned reads %q in GDC project %s",
			submiterr.ErrSampleNotFoundInArchive, submitterID, c.ProjectID())
	}
	return rows[0], nil
}

// Transaction is the outcome of a dry-run submission and the follow-up
// commit or close.
type Transaction struct {
	ID        int                 `json:"transaction_id"`
	Success   bool                `json:"success"`
	Message   string              `json:"message,omitempty"`
	Entities  []TransactionEntity `json:"entities,omitempty"`
	Committed bool                `json:"-"`
}

// TransactionEntity is one entity's result within a transaction.
type TransactionEntity struct {
	ID     string        `json:"id,omitempty"`
	Type   string        `json:"type,omitempty"`
	Valid  bool          `json:"valid"`
	Errors []EntityError `json:"errors,omitempty"`
}

// EntityError is a validation message GDC attached to an entity.
type EntityError struct {
	Message string   `json:"message"`
	Keys    []string `json:"keys,omitempty"`
}

func (t Transaction) errorSummary() string {
	var msgs []string
	for _, e := range t.Entities {
		for _, m := range e.Errors {
			msgs = append(msgs, e.Type+": "+m.Message)
		}
	}
	if len(msgs) == 0 {
		return t.Message
	}
	return strings.Join(msgs, "; ")
}

// Submit sends entities to the project's dry-run endpoint and then commits
// the transaction when the dry run succeeded, or closes it otherwise. A
// rejected dry run is a remote failure carrying the entity errors.
func (c *Client) Submit(ctx context.Context, entities any) (Transaction, error) {
	base := c.endpoint + "/" + c.program + "/" + c.project
	dryStatus, body, err := c.do(ctx, "gdc dry run", http.MethodPut, base+"/_dry_run", entities)
	if err != nil {
		return Transaction{}, err
	}
	var tx Transaction
	if err := json.Unmarshal(body, &tx); err != nil || tx.ID == 0 {
		return Transaction{}, &submiterr.RemoteError{Step: "gdc dry run", Status: dryStatus, Body: strings.TrimSpace(string(body))}
	}

	op := "close"
	if tx.Success {
		op = "commit"
	}
	step := "gdc " + op
	url := base + "/transactions/" + strconv.Itoa(tx.ID) + "/" + op
	status, body, err := c.do(ctx, step, http.MethodPut, url, nil)
	if err != nil {
		return tx, err
	}
	if !ok(status) {
		return tx, &submiterr.RemoteError{Step: step, Status: status, Body: strings.TrimSpace(string(body))}
	}
	c.logger.Info("gdc transaction finished",
		zap.Int("transaction", tx.ID),
		zap.String("operation", op),
		zap.Int("entities", len(tx.Entities)))
	if !tx.Success {
		return tx, &submiterr.RemoteError{Step: "gdc dry run", Status: dryStatus, Body: tx.errorSummary()}
	}
	tx.Committed = true
	return tx, nil
}

// query runs a GraphQL lookup of entity by submitter id within the project
// and decodes data.<entity> into out.
func (c *Client) query(ctx context.Context, step, entity, submitterID string, fields []string, out any) error {
	q := fmt.Sprintf("{ %s (project_id: %s, submitter_id: %s) { id %s } }",
		entity, strconv.Quote(c.ProjectID()), strconv.Quote(submitterID), strings.Join(fields, " "))
	status, body, err := c.do(ctx, step, http.MethodPost, c.endpoint+"/graphql", map[string]string{"query": q})
	if err != nil {
		return err
	}
	if !ok(status) {
		return &submiterr.RemoteError{Step: step, Status: status, Body: strings.TrimSpace(string(body))}
	}
	var resp struct {
		Data   map[string]json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return &submiterr.RemoteError{Step: step, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(resp.Errors) > 0 {
		return &submiterr.RemoteError{Step: step, Status: status, Body: resp.Errors[0].Message}
	}
	rows, found := resp.Data[entity]
	if !found || bytes.Equal(bytes.TrimSpace(rows), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(rows, out); err != nil {
		return &submiterr.RemoteError{Step: step, Err: fmt.Errorf("decode %s: %w", entity, err)}
	}
	return nil
}

// do sends body as JSON and returns the status and raw response. Only
// transport failures are errors; callers judge the status.
func (c *Client) do(ctx context.Context, step, method, url string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: encode payload: %w", step, err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: %w", step, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return 0, nil, fmt.Errorf("%s: token: %w", step, err)
		}
		req.Header.Set("X-Auth-Token", token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &submiterr.RemoteError{Step: step, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &submiterr.RemoteError{Step: step, Status: resp.StatusCode, Err: err}
	}
	c.logger.Debug("gdc call",
		zap.String("step", step),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	return resp.StatusCode, data, nil
}

func ok(status int) bool { return status >= 200 && status < 300 }
