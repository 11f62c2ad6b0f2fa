package statuslog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultQueueSize = 256
	sendTimeout      = 5 * time.Second
)

// Record is one log event as delivered to a remote status endpoint.
type Record struct {
	Severity int    `json:"severity"`
	Message  string `json:"message"`
}

// Sender delivers one record to a remote destination. It must respect
// the context deadline; the forwarding worker calls it with a timeout.
type Sender interface {
	Send(ctx context.Context, rec Record) error
}

// forwarder decouples log calls from remote delivery: enqueue never
// blocks, and a single worker goroutine drains the queue. Close closes
// the queue and joins the worker, so everything enqueued before Close
// is delivered (or reported) before Close returns.
type forwarder struct {
	ch        chan Record
	done      chan struct{}
	closeOnce sync.Once
	sender    Sender
	errOut    io.Writer
	dropped   int
	mu        sync.Mutex // guards ch sends vs close, and dropped
	closed    bool
}

func newForwarder(sender Sender, size int, errOut io.Writer) *forwarder {
	f := &forwarder{
		ch:     make(chan Record, size),
		done:   make(chan struct{}),
		sender: sender,
		errOut: errOut,
	}
	go f.run()
	return f
}

func (f *forwarder) run() {
	defer close(f.done)
	for rec := range f.ch {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := f.sender.Send(ctx, rec)
		cancel()
		if err != nil {
			// The remote endpoint is best effort. Report locally and
			// keep draining.
			fmt.Fprintf(f.errOut, "could not forward status record: %v\n", err)
		}
	}
}

// enqueue adds a record without blocking. If the queue is full the
// record is dropped and counted; a slow endpoint must not stall the job.
func (f *forwarder) enqueue(rec Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.ch <- rec:
	default:
		f.dropped++
	}
}

func (f *forwarder) Close() {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.closed = true
		dropped := f.dropped
		close(f.ch)
		f.mu.Unlock()
		<-f.done
		if dropped > 0 {
			fmt.Fprintf(f.errOut, "dropped %d status records: queue was full\n", dropped)
		}
	})
}

// HTTPSender posts records as JSON to a status endpoint. Each record
// carries the job ID so the endpoint can correlate events from
// concurrent jobs.
type HTTPSender struct {
	endpoint string
	jobID    uuid.UUID
	client   *http.Client
}

func NewHTTPSender(endpoint string, jobID uuid.UUID) (*HTTPSender, error) {
	if endpoint == "" {
		return nil, errors.New("status endpoint is required")
	}
	return &HTTPSender{
		endpoint: endpoint,
		jobID:    jobID,
		client:   &http.Client{Timeout: sendTimeout},
	}, nil
}

func (s *HTTPSender) Send(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(struct {
		JobID    string `json:"job_id"`
		Severity int    `json:"severity"`
		Message  string `json:"message"`
	}{
		JobID:    s.jobID.String(),
		Severity: rec.Severity,
		Message:  rec.Message,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status endpoint returned %s", resp.Status)
	}
	return nil
}
