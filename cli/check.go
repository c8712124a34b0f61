package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CheckResult is the outcome of probing one endpoint.
type CheckResult struct {
	Name    string
	Method  string
	Path    string
	Status  int
	Latency time.Duration
	Detail  string
	Err     error
}

// OK reports whether the endpoint answered 200 with the expected body.
func (r CheckResult) OK() bool {
	return r.Err == nil && r.Status == http.StatusOK
}

type check struct {
	name   string
	method string
	path   string
	body   interface{}
	verify func(body []byte) (string, error)
}

var checks = []check{
	{
		name: "root", method: http.MethodGet, path: "/",
		verify: func(body []byte) (string, error) {
			var v struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &v); err != nil {
				return "", err
			}
			if v.Status != "running" {
				return "", fmt.Errorf("unexpected status %q", v.Status)
			}
			return "running", nil
		},
	},
	{
		name: "health", method: http.MethodGet, path: "/health",
		verify: func(body []byte) (string, error) {
			var v struct {
				Status string `json:"status"`
				Ollama string `json:"ollama"`
			}
			if err := json.Unmarshal(body, &v); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s, ollama %s", v.Status, v.Ollama), nil
		},
	},
	{
		name: "debug", method: http.MethodGet, path: "/debug",
		verify: func(body []byte) (string, error) {
			var v struct {
				Model       string `json:"model"`
				Transcriber string `json:"transcriber"`
			}
			if err := json.Unmarshal(body, &v); err != nil {
				return "", err
			}
			return fmt.Sprintf("model %s, transcriber %s", v.Model, v.Transcriber), nil
		},
	},
	{
		name: "chat", method: http.MethodPost, path: "/chat",
		body: map[string]string{"message": "Test message"},
		verify: func(body []byte) (string, error) {
			var v struct {
				Response       string  `json:"response"`
				ProcessingTime float64 `json:"processing_time"`
			}
			if err := json.Unmarshal(body, &v); err != nil {
				return "", err
			}
			if v.Response == "" {
				return "", fmt.Errorf("empty response")
			}
			return fmt.Sprintf("%d chars in %.2fs", len(v.Response), v.ProcessingTime), nil
		},
	},
}

// RunChecks probes the gateway endpoints in order.
func RunChecks(base string, timeout time.Duration) []CheckResult {
	client := &http.Client{Timeout: timeout}
	results := make([]CheckResult, 0, len(checks))
	for _, ch := range checks {
		results = append(results, runCheck(client, base, ch))
	}
	return results
}

func runCheck(client *http.Client, base string, ch check) CheckResult {
	res := CheckResult{Name: ch.name, Method: ch.method, Path: ch.path}

	var body io.Reader
	if ch.body != nil {
		data, err := json.Marshal(ch.body)
		if err != nil {
			res.Err = err
			return res
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(ch.method, base+ch.path, body)
	if err != nil {
		res.Err = err
		return res
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Err = err
		return res
	}
	if resp.StatusCode != http.StatusOK {
		res.Err = fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(data))
		return res
	}
	res.Detail, res.Err = ch.verify(data)
	return res
}

// PrintReport writes one line per check and a summary. It returns true when
// every check passed.
func PrintReport(w io.Writer, results []CheckResult) bool {
	passed := 0
	for _, r := range results {
		if r.OK() {
			passed++
			fmt.Fprintf(w, "✓ %-6s %s %s (%s) %s\n", r.Name, r.Method, r.Path, r.Latency.Round(time.Millisecond), r.Detail)
		} else {
			fmt.Fprintf(w, "✗ %-6s %s %s: %v\n", r.Name, r.Method, r.Path, r.Err)
		}
	}
	fmt.Fprintf(w, "\n%d/%d checks passed\n", passed, len(results))
	return passed == len(results)
}
