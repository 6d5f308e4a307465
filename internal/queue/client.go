// Package queue wraps the upstream task queue's depth API: one
// operation, pending(provisioner_id, worker_type) -> non-negative
// integer, where every failure degrades to zero rather than propagating
// (spec.md §4.2).
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the upstream Taskcluster queue's pending-tasks
// endpoint root, matching the original's hardcoded
// "https://queue.taskcluster.net/v1/pending" (original_source
// taskcluster.py). Callers may override it for self-hosted queues.
const DefaultBaseURL = "https://queue.taskcluster.net/v1/pending"

// Client issues pending-task-count lookups against the upstream queue.
type Client struct {
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger
}

// NewClient builds a Client against baseURL (e.g.
// "https://queue.example.org/v1/pending").
func NewClient(baseURL string, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		log:     log,
	}
}

type pendingResponse struct {
	PendingTasks int `json:"pendingTasks"`
}

// PendingOrZero returns the upstream queue's reported pending task count
// for (provisionerID, workerType). Any transport error or non-2xx
// response degrades to 0 — "the loop treats 'unknown' as 'no demand' so
// as never to spuriously over-dispatch" (spec.md §4.2).
func (c *Client) PendingOrZero(ctx context.Context, provisionerID, workerType string) int {
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, provisionerID, workerType)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.log.WithError(err).Warn("queue: build request failed, treating pending as 0")
		return 0
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("url", url).Warn("queue: request failed, treating pending as 0")
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.WithField("status", resp.StatusCode).Warn("queue: non-2xx response, treating pending as 0")
		return 0
	}

	var body pendingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.WithError(err).Warn("queue: decode failed, treating pending as 0")
		return 0
	}
	if body.PendingTasks < 0 {
		return 0
	}
	return body.PendingTasks
}
