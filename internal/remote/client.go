package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"ncboard/internal/logging"
	"ncboard/internal/record"
)

var (
	// ErrUnauthorized means the store rejected the bearer token. The stored
	// token has already been cleared when this is returned.
	ErrUnauthorized = errors.New("candidate store rejected credentials")
	// ErrUnavailable means the store could not be reached.
	ErrUnavailable = errors.New("candidate store unavailable")
)

// StatusError is a non-2xx response other than 401/403.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.Code)
}

// Credentials supplies and revokes the bearer token.
type Credentials interface {
	Token() string
	Clear() error
}

// Client talks to the candidate store HTTP API.
type Client struct {
	base   *url.URL
	http   *http.Client
	creds  Credentials
	logger *slog.Logger
}

// NewClient builds a client for baseURL. A missing scheme defaults to http.
func NewClient(baseURL string, timeout time.Duration, creds Credentials, logger *slog.Logger) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("candidate store url is empty")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse candidate store url: %w", err)
	}
	base.RawQuery = ""
	base.Fragment = ""
	base.Path = strings.TrimRight(base.Path, "/")

	return &Client{
		base:   base,
		http:   &http.Client{Timeout: timeout},
		creds:  creds,
		logger: logging.NewComponentLogger(logger, "remote"),
	}, nil
}

// BySourceResult is the response to a delete-by-provenance call.
type BySourceResult struct {
	Deleted        int      `json:"deleted"`
	AllSourceFiles []string `json:"all_source_files"`
}

// FetchAll returns every record in the store.
func (c *Client) FetchAll(ctx context.Context) ([]record.Record, error) {
	var rows []map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/candidates", nil, &rows); err != nil {
		return nil, err
	}
	out := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		rec := record.MapServerRow(row)
		rec.DateAssessed = record.NormalizeDate(rec.DateAssessed)
		out = append(out, rec)
	}
	return out, nil
}

// Import bulk-inserts rows tagged with sourceFile and returns the inserted count.
func (c *Client) Import(ctx context.Context, rows []record.Record, sourceFile string) (int, error) {
	body := struct {
		Rows       []record.Record `json:"rows"`
		SourceFile string          `json:"source_file"`
	}{Rows: rows, SourceFile: sourceFile}
	var resp struct {
		Inserted int `json:"inserted"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/import-json", body, &resp); err != nil {
		return 0, err
	}
	return resp.Inserted, nil
}

// Create stores rec and returns its new identity.
func (c *Client) Create(ctx context.Context, rec record.Record) (string, error) {
	body := map[string]string{
		"name":              rec.Name,
		"gender":            rec.Gender,
		"qualification":     rec.Qualification,
		"date_assessed":     rec.DateAssessed,
		"assessment_center": rec.AssessmentCenter,
		"assessment_status": rec.AssessmentStatus,
		"result":            rec.Result,
		"nc_no":             rec.NCNo,
		"school":            rec.School,
		"source_file":       rec.SourceFile,
	}
	var resp struct {
		ID json.Number `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/candidates", body, &resp); err != nil {
		return "", err
	}
	id := strings.TrimSpace(resp.ID.String())
	if id == "" {
		return "", errors.New("create candidate: response missing id")
	}
	return id, nil
}

// UpdateByID overwrites the stored fields of record id with rec.
func (c *Client) UpdateByID(ctx context.Context, id string, rec record.Record) error {
	body := map[string]string{
		"name":             rec.Name,
		"gender":           rec.Gender,
		"qualification":    rec.Qualification,
		"dateAssessed":     rec.DateAssessed,
		"assessmentCenter": rec.AssessmentCenter,
		"assessmentStatus": rec.AssessmentStatus,
		"result":           rec.Result,
		"ncNo":             rec.NCNo,
		"school":           rec.School,
	}
	return c.do(ctx, http.MethodPut, "/api/candidates/"+url.PathEscape(id), body, nil)
}

// DeleteByID removes record id and returns the number of affected rows.
func (c *Client) DeleteByID(ctx context.Context, id string) (int, error) {
	var resp struct {
		Deleted int `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/candidates/"+url.PathEscape(id), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// DeleteBySource removes every record whose provenance is sourceFile.
func (c *Client) DeleteBySource(ctx context.Context, sourceFile string) (BySourceResult, error) {
	var resp BySourceResult
	path := "/api/candidates/by-source/" + url.PathEscape(sourceFile)
	if err := c.do(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return BySourceResult{}, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.base.String() + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	requestID, ok := logging.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds != nil {
		if token := c.creds.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	log := c.logger.With(logging.String(logging.FieldCorrelationID, requestID))
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug("candidate store request failed",
			logging.String("method", method),
			logging.String("path", path),
			logging.Error(err))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if c.creds != nil {
			if clearErr := c.creds.Clear(); clearErr != nil {
				logging.WarnWithContext(log, "could not clear rejected token", "credential_clear_failed",
					logging.Error(clearErr),
					logging.String(logging.FieldErrorHint, "remove the credential file manually"),
					logging.String(logging.FieldImpact, "the rejected token will be sent again"))
			}
		}
		return fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Detail: errorDetail(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func errorDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}

// IsUnavailable reports whether err means the store could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsUnauthorized reports whether err is an authentication rejection.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
