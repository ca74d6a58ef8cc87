package eligibility

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"seqsubmit/internal/submiterr"
)

// DefaultReportURL is the dbGaP sample status endpoint.
const DefaultReportURL = "https://www.ncbi.nlm.nih.gov/projects/gap/cgi-bin/GetSampleStatus.cgi"

// HTTPTelemetryClient fetches telemetry reports over HTTP.
type HTTPTelemetryClient struct {
	BaseURL string
	HTTP    *http.Client
}

// NewHTTPTelemetryClient returns a client for baseURL, or DefaultReportURL when empty.
func NewHTTPTelemetryClient(baseURL string, timeout time.Duration) *HTTPTelemetryClient {
	if baseURL == "" {
		baseURL = DefaultReportURL
	}
	return &HTTPTelemetryClient{BaseURL: baseURL, HTTP: &http.Client{Timeout: timeout}}
}

// Report implements TelemetryClient.
func (c *HTTPTelemetryClient) Report(ctx context.Context, studyID string) (Report, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return Report{}, fmt.Errorf("telemetry url: %w", err)
	}
	q := u.Query()
	q.Set("rettype", "xml")
	q.Set("study_id", studyID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Report{}, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Report{}, &submiterr.RemoteError{Step: "telemetry report", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Report{}, &submiterr.RemoteError{Step: "telemetry report", Status: resp.StatusCode, Body: string(body)}
	}
	return ParseReport(resp.Body)
}
