// Package github reads set 2 from the monomer library repository on GitHub
// and resolves the date each file was last committed.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"ccdsync/internal/config"
	"ccdsync/internal/domain"
	"ccdsync/internal/source"
)

const defaultBatchSize = 50

// Endpoints groups the base URLs the client talks to.
type Endpoints struct {
	Raw     string
	API     string
	GraphQL string
}

// Client implements port.DocumentSource and port.CommitDateResolver.
type Client struct {
	owner     string
	repo      string
	branch    string
	token     string
	userAgent string
	endpoints Endpoints
	batchSize int
	backoff   int
	client    *http.Client
	circuit   *source.Circuit
}

// NewClient creates a GitHub client from the sources config.
func NewClient(cfg *config.SourcesConfig, batchSize int) *Client {
	return NewClientWithEndpoints(cfg, batchSize, Endpoints{
		Raw:     cfg.RawBaseURL,
		API:     cfg.APIBaseURL,
		GraphQL: cfg.GraphQLURL,
	})
}

// NewClientWithEndpoints creates a client pointing at custom endpoints (for testing).
func NewClientWithEndpoints(cfg *config.SourcesConfig, batchSize int, ep Endpoints) *Client {
	owner, repo, _ := strings.Cut(cfg.GitHubRepo, "/")
	branch := cfg.GitHubBranch
	if branch == "" {
		branch = "master"
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ep.Raw = strings.TrimSuffix(ep.Raw, "/")
	ep.API = strings.TrimSuffix(ep.API, "/")
	return &Client{
		owner:     owner,
		repo:      repo,
		branch:    branch,
		token:     cfg.GitHubToken,
		userAgent: cfg.UserAgent,
		endpoints: ep,
		batchSize: batchSize,
		backoff:   cfg.RateLimitBackoffSec,
		client:    &http.Client{Timeout: timeout},
		circuit:   &source.Circuit{},
	}
}

func (c *Client) Name() string { return string(domain.SourceGitHub) }

// Repo returns "owner/name", used to namespace cached dates.
func (c *Client) Repo() string { return c.owner + "/" + c.repo }

func (c *Client) PathFor(code string) (string, error) {
	return source.MonomerPath(code), nil
}

// Fetch reads a file through the raw content host.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	u := fmt.Sprintf("%s/%s/%s/%s/%s", c.endpoints.Raw, c.owner, c.repo, c.branch, strings.TrimPrefix(path, "/"))
	resp, body, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", path, domain.ErrDocumentUnavailable)
	case http.StatusTooManyRequests:
		return nil, c.rateLimited(resp, fmt.Errorf("raw content status %d", resp.StatusCode))
	default:
		return nil, fmt.Errorf("fetching %s: unexpected status %d", path, resp.StatusCode)
	}
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

// List enumerates every component file through the recursive git tree of
// the branch.
func (c *Client) List(ctx context.Context) ([]string, error) {
	if err := c.checkCircuit(); err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", c.endpoints.API, c.owner, c.repo, url.PathEscape(c.branch))
	resp, body, err := c.do(ctx, http.MethodGet, u, nil, c.restAuth())
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c.Repo(), err)
	}
	if isRateLimited(resp) {
		return nil, c.rateLimited(resp, fmt.Errorf("listing status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing %s: unexpected status %d", c.Repo(), resp.StatusCode)
	}

	var tree treeResponse
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, fmt.Errorf("decoding tree: %w", err)
	}
	if tree.Truncated {
		log.Printf("github.Client.List: tree of %s is truncated, listing is incomplete", c.Repo())
	}

	var paths []string
	for _, entry := range tree.Tree {
		if entry.Type == "blob" && source.IsComponentFile(entry.Path) {
			paths = append(paths, entry.Path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

type commitsResponse []struct {
	Commit struct {
		Committer struct {
			Date string `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

// CommitDate asks the REST commits endpoint for the last commit touching a
// file, trying {first, lower case}/{name} and then {name}. A file without
// history (empty list or 404 on every path) yields "". Transport failures,
// 5xx responses and undecodable bodies are returned as errors so the miss is
// not remembered.
func (c *Client) CommitDate(ctx context.Context, fileName string) (string, error) {
	if err := c.checkCircuit(); err != nil {
		return "", err
	}
	var lastErr error
	for _, p := range restPaths(fileName) {
		u := fmt.Sprintf("%s/repos/%s/%s/commits?path=%s&per_page=1", c.endpoints.API, c.owner, c.repo, url.QueryEscape(p))
		resp, body, err := c.do(ctx, http.MethodGet, u, nil, c.restAuth())
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = fmt.Errorf("commits for %s: %w", p, err)
			continue
		}
		if isRateLimited(resp) {
			return "", c.rateLimited(resp, fmt.Errorf("commits status %d", resp.StatusCode))
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("commits for %s: status %d", p, resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			continue
		}
		var commits commitsResponse
		if err := json.Unmarshal(body, &commits); err != nil {
			lastErr = fmt.Errorf("decoding commits for %s: %w", p, err)
			continue
		}
		if len(commits) == 0 {
			continue
		}
		if date := source.FormatCommitDate(commits[0].Commit.Committer.Date); date != "" {
			return date, nil
		}
	}
	if lastErr != nil {
		log.Printf("github.Client.CommitDate: %s: %v", fileName, lastErr)
		return "", lastErr
	}
	return "", nil
}

func restPaths(fileName string) []string {
	if fileName == "" {
		return nil
	}
	structured := strings.ToLower(fileName[:1]) + "/" + fileName
	return []string{structured, fileName}
}

type graphQLResponse struct {
	Data   map[string]*graphQLRepository `json:"data"`
	Errors []struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"errors"`
}

type graphQLRepository struct {
	DefaultBranchRef *struct {
		Target struct {
			History struct {
				Nodes []struct {
					CommittedDate string `json:"committedDate"`
				} `json:"nodes"`
			} `json:"history"`
		} `json:"target"`
	} `json:"defaultBranchRef"`
}

// CommitDates resolves many files with aliased GraphQL queries, one request
// per batch. Files without history are missing from the result. A rate
// limit stops the remaining batches and is returned with the dates found so
// far.
func (c *Client) CommitDates(ctx context.Context, fileNames []string) (map[string]string, error) {
	out := make(map[string]string, len(fileNames))
	for start := 0; start < len(fileNames); start += c.batchSize {
		end := min(start+c.batchSize, len(fileNames))
		if err := c.commitDatesBatch(ctx, fileNames[start:end], out); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (c *Client) commitDatesBatch(ctx context.Context, chunk []string, out map[string]string) error {
	if err := c.checkCircuit(); err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]string{"query": c.buildQuery(chunk)})
	if err != nil {
		return fmt.Errorf("marshaling query: %w", err)
	}

	resp, body, err := c.do(ctx, http.MethodPost, c.endpoints.GraphQL, payload, c.graphQLAuth())
	if err != nil {
		return fmt.Errorf("querying commit dates: %w", err)
	}
	if isRateLimited(resp) {
		return c.rateLimited(resp, fmt.Errorf("graphql status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("querying commit dates: unexpected status %d", resp.StatusCode)
	}

	var res graphQLResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return fmt.Errorf("decoding commit dates: %w", err)
	}
	for _, e := range res.Errors {
		if strings.Contains(strings.ToLower(e.Message), "rate limit") || e.Type == "RATE_LIMITED" {
			return c.rateLimited(resp, fmt.Errorf("graphql: %s", e.Message))
		}
	}
	if len(res.Errors) > 0 {
		log.Printf("github.Client.CommitDates: %d query errors, first: %s", len(res.Errors), res.Errors[0].Message)
	}

	for idx, name := range chunk {
		repo := res.Data[fmt.Sprintf("file%d", idx)]
		if repo == nil || repo.DefaultBranchRef == nil {
			continue
		}
		nodes := repo.DefaultBranchRef.Target.History.Nodes
		if len(nodes) == 0 {
			continue
		}
		if date := source.FormatCommitDate(nodes[0].CommittedDate); date != "" {
			out[name] = date
		}
	}
	return nil
}

func (c *Client) buildQuery(chunk []string) string {
	var b strings.Builder
	b.WriteString("query {\n")
	for idx, name := range chunk {
		p := restPaths(name)
		if len(p) == 0 {
			continue
		}
		fmt.Fprintf(&b,
			"  file%d: repository(owner: %q, name: %q) { defaultBranchRef { target { ... on Commit { history(first: 1, path: %q) { nodes { committedDate } } } } } }\n",
			idx, c.owner, c.repo, p[0])
	}
	b.WriteString("}")
	return b.String()
}

func (c *Client) restAuth() string {
	if c.token == "" {
		return ""
	}
	return "token " + c.token
}

func (c *Client) graphQLAuth() string {
	if c.token == "" {
		return ""
	}
	return "Bearer " + c.token
}

func (c *Client) do(ctx context.Context, method, u string, payload []byte, auth string) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp, body, nil
}

// isRateLimited treats 403 and 429 as rate limits; GitHub reports an
// exhausted quota with either.
func isRateLimited(resp *http.Response) bool {
	return resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests
}

func (c *Client) rateLimited(resp *http.Response, err error) error {
	secs := source.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
	if secs == 0 {
		secs = source.ParseRateLimitReset(resp.Header.Get("X-RateLimit-Reset"), time.Now())
	}
	if secs == 0 {
		secs = c.backoff
	}
	rlErr := source.NewRateLimitError(c.Name(), err, secs)
	c.circuit.Trip(rlErr, time.Now())
	log.Printf("github.Client: rate limited, further API calls suspended for %s", rlErr.RetryAfter)
	return rlErr
}

func (c *Client) checkCircuit() error {
	resetAt, open := c.circuit.IsOpen(time.Now())
	if !open {
		return nil
	}
	return source.NewRateLimitError(c.Name(), fmt.Errorf("circuit open"), int(time.Until(resetAt).Seconds())+1)
}
