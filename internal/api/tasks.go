package api

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/pwojcieszonek/pvectl/internal/pve"
)

// pollInterval is how often a waiting poller re-reads task status.
const pollInterval = time.Second

// TaskPoller reads and waits on server-side tasks.
type TaskPoller struct {
	client *Client

	// interval overrides pollInterval in tests.
	interval time.Duration
}

// NewTaskPoller creates a task poller.
func NewTaskPoller(client *Client) *TaskPoller {
	return &TaskPoller{client: client, interval: pollInterval}
}

// Find returns a snapshot of the task without waiting.
func (p *TaskPoller) Find(ctx context.Context, node, upid string) (*pve.Task, error) {
	var status struct {
		UPID       string `json:"upid"`
		Node       string `json:"node"`
		Type       string `json:"type"`
		Status     string `json:"status"`
		ExitStatus string `json:"exitstatus"`
	}
	path := fmt.Sprintf("/nodes/%s/tasks/%s/status", node, url.PathEscape(upid))
	if err := p.client.Get(ctx, path, &status); err != nil {
		return nil, fmt.Errorf("task %s: %w", upid, err)
	}
	return &pve.Task{
		UPID:       status.UPID,
		Node:       status.Node,
		Type:       status.Type,
		Status:     status.Status,
		ExitStatus: status.ExitStatus,
	}, nil
}

// Wait polls the task until it reaches a terminal state. It returns an
// error when the timeout elapses first; the task may still be running
// server-side in that case.
func (p *TaskPoller) Wait(ctx context.Context, node, upid string, timeout time.Duration) (*pve.Task, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		task, err := p.Find(ctx, node, upid)
		if err != nil {
			return nil, err
		}
		if task.Finished() {
			return task, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("task %s did not finish within %s", upid, timeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
