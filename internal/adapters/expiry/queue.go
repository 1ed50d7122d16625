// Package expiry schedules and performs the expiry of issued quotes through
// a delayed job queue (lmstfy). Issuing a quote publishes a job delayed
// until the end of its validity; the worker consumes due jobs and expires
// the quote through the application service.
package expiry

import (
	"fmt"
	"time"

	"github.com/bitleak/lmstfy/client"
)

// Job is a consumed queue message.
type Job struct {
	ID   string
	Data []byte
}

// Queue is the delayed job queue the scheduler and worker need.
type Queue interface {
	Publish(queue string, data []byte, ttl, tries, delay uint32) (string, error)
	// Consume blocks up to timeout and returns nil, nil when no job is due.
	// An unacknowledged job is redelivered after ttr.
	Consume(queue string, timeout, ttr time.Duration) (*Job, error)
	Ack(queue, jobID string) error
}

// LmstfyQueue adapts the lmstfy client to Queue.
type LmstfyQueue struct {
	cli *client.LmstfyClient
}

var _ Queue = (*LmstfyQueue)(nil)

// LmstfyConfig addresses one lmstfy namespace.
type LmstfyConfig struct {
	Host      string
	Port      int
	Namespace string
	Token     string
}

// NewLmstfyQueue creates the client. No connection is made until first use.
func NewLmstfyQueue(cfg LmstfyConfig) *LmstfyQueue {
	return &LmstfyQueue{cli: client.NewLmstfyClient(cfg.Host, cfg.Port, cfg.Namespace, cfg.Token)}
}

// Publish implements Queue.
func (q *LmstfyQueue) Publish(queue string, data []byte, ttl, tries, delay uint32) (string, error) {
	id, err := q.cli.Publish(queue, data, ttl, uint16(tries), delay) //nolint:gosec // tries is small
	if err != nil {
		return "", fmt.Errorf("lmstfy publish: %w", err)
	}

	return id, nil
}

// Consume implements Queue.
func (q *LmstfyQueue) Consume(queue string, timeout, ttr time.Duration) (*Job, error) {
	job, err := q.cli.Consume(queue, uint32(ttr.Seconds()), uint32(timeout.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("lmstfy consume: %w", err)
	}

	if job == nil {
		return nil, nil
	}

	return &Job{ID: job.ID, Data: job.Data}, nil
}

// Ack implements Queue.
func (q *LmstfyQueue) Ack(queue, jobID string) error {
	if err := q.cli.Ack(queue, jobID); err != nil {
		return fmt.Errorf("lmstfy ack: %w", err)
	}

	return nil
}
