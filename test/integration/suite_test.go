//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
)

// testContext holds state shared across step definitions within a scenario.
type testContext struct {
	t            *testing.T
	baseURL      string
	client       *http.Client
	headers      http.Header
	response     *http.Response
	responseBody []byte
	quoteID      string
}

// newTestContext targets BASE_URL when set. Otherwise the service is
// started in-process on the first "the service is running" step.
func newTestContext(t *testing.T) *testContext {
	return &testContext{
		t:       t,
		baseURL: os.Getenv("BASE_URL"),
		client:  &http.Client{Timeout: 10 * time.Second},
		headers: make(http.Header),
	}
}

// reset clears response state between scenarios.
func (tc *testContext) reset() {
	if tc.response != nil && tc.response.Body != nil {
		_ = tc.response.Body.Close()
	}

	tc.response = nil
	tc.responseBody = nil
	tc.quoteID = ""
	tc.headers = make(http.Header)
}

func initializeScenario(t *testing.T) func(*godog.ScenarioContext) {
	return func(sc *godog.ScenarioContext) {
		tc := newTestContext(t)

		sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
			tc.reset()
			return ctx, nil
		})

		sc.After(func(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
			tc.reset()
			return ctx, nil
		})

		sc.Step(`^the service is running$`, tc.theServiceIsRunning)
		sc.Step(`^I am customer "([^"]*)"$`, tc.iAmCustomer)
		sc.Step(`^I hold the role "([^"]*)"$`, tc.iHoldTheRole)
		sc.Step(`^I use the idempotency key "([^"]*)"$`, tc.iUseTheIdempotencyKey)
		sc.Step(`^I request GET "([^"]*)"$`, tc.iRequest(http.MethodGet))
		sc.Step(`^I request POST "([^"]*)"$`, tc.iRequest(http.MethodPost))
		sc.Step(`^I request a quote:$`, tc.iRequestAQuote)
		sc.Step(`^the response status should be (\d+)$`, tc.theResponseStatusShouldBe)
		sc.Step(`^the response should contain "([^"]*)"$`, tc.theResponseShouldContain)
		sc.Step(`^the field "([^"]*)" should be "([^"]*)"$`, tc.theFieldShouldBe)
		sc.Step(`^the quote id should be unchanged$`, tc.theQuoteIDShouldBeUnchanged)
	}
}

// theServiceIsRunning verifies the service is reachable.
func (tc *testContext) theServiceIsRunning() error {
	if tc.baseURL == "" {
		tc.baseURL = newStack(tc.t, stackOptions{}).server.URL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tc.baseURL+"/-/live", http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("service is not running at %s: %w", tc.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}

	return nil
}

func (tc *testContext) iAmCustomer(id string) error {
	tc.headers.Set("X-User-ID", id)
	return nil
}

func (tc *testContext) iHoldTheRole(role string) error {
	tc.headers.Set("X-User-Roles", role)
	return nil
}

func (tc *testContext) iUseTheIdempotencyKey(key string) error {
	tc.headers.Set("Idempotency-Key", key)
	return nil
}

// iRequest sends a bodiless request. "{id}" in the path is replaced with
// the last quote created in the scenario.
func (tc *testContext) iRequest(method string) func(string) error {
	return func(path string) error {
		return tc.send(method, strings.ReplaceAll(path, "{id}", tc.quoteID), nil)
	}
}

func (tc *testContext) iRequestAQuote(body *godog.DocString) error {
	if err := tc.send(http.MethodPost, "/api/v1/quotes", []byte(body.Content)); err != nil {
		return err
	}

	if tc.response.StatusCode != http.StatusCreated && tc.response.StatusCode != http.StatusOK {
		return nil
	}

	id, err := tc.field("id")
	if err != nil {
		return err
	}

	if tc.quoteID == "" {
		tc.quoteID = id
	}

	return nil
}

func (tc *testContext) send(method, path string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, tc.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	for name, values := range tc.headers {
		req.Header[name] = values
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	tc.response = resp

	if tc.responseBody, err = io.ReadAll(resp.Body); err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	return nil
}

// theResponseStatusShouldBe asserts the response status code.
func (tc *testContext) theResponseStatusShouldBe(expected int) error {
	if tc.response == nil {
		return fmt.Errorf("no response received")
	}

	if tc.response.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d. Body: %s", expected, tc.response.StatusCode, tc.responseBody)
	}

	return nil
}

// theResponseShouldContain asserts the response body contains text.
func (tc *testContext) theResponseShouldContain(text string) error {
	if !strings.Contains(string(tc.responseBody), text) {
		return fmt.Errorf("response body does not contain %q.\nBody: %s", text, tc.responseBody)
	}

	return nil
}

func (tc *testContext) theFieldShouldBe(path, expected string) error {
	got, err := tc.field(path)
	if err != nil {
		return err
	}

	if got != expected {
		return fmt.Errorf("field %s: expected %q, got %q", path, expected, got)
	}

	return nil
}

func (tc *testContext) theQuoteIDShouldBeUnchanged() error {
	return tc.theFieldShouldBe("id", tc.quoteID)
}

// field resolves a dotted path such as "line_items.1.code" in the JSON body.
func (tc *testContext) field(path string) (string, error) {
	var node any
	if err := json.Unmarshal(tc.responseBody, &node); err != nil {
		return "", fmt.Errorf("decoding response body: %w", err)
	}

	for _, part := range strings.Split(path, ".") {
		switch n := node.(type) {
		case map[string]any:
			node = n[part]
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(n) {
				return "", fmt.Errorf("field %s: bad index %q", path, part)
			}

			node = n[i]
		default:
			return "", fmt.Errorf("field %s: cannot descend into %T", path, node)
		}
	}

	switch v := node.(type) {
	case nil:
		return "", fmt.Errorf("field %s: missing", path)
	case string:
		return v, nil
	default:
		return fmt.Sprint(v), nil
	}
}

// TestFeatures runs the GoDog BDD test suite.
func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario(t),
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../features"},
			TestingT: t,
			Tags:     os.Getenv("GODOG_TAGS"),
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
