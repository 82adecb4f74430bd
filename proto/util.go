package proto

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBeatInterval is how often a worker reports it still holds a lease.
const DefaultBeatInterval = 10 * time.Second

// HeartBeat keeps a batch lease alive while the worker computes.
type HeartBeat struct {
	Beat     chan error
	Client   TokensClient
	JobID    string
	Key      string
	Interval time.Duration

	done      chan struct{}
	once      sync.Once
	wg        sync.WaitGroup
	mu        sync.Mutex
	completed bool
}

// NewHeartBeat prepares a heartbeat for the lease jobID/key.
func NewHeartBeat(client TokensClient, jobID, key string) *HeartBeat {
	return &HeartBeat{
		Beat:     make(chan error, 1),
		Client:   client,
		JobID:    jobID,
		Key:      key,
		Interval: DefaultBeatInterval,
		done:     make(chan struct{}),
	}
}

// Start beats immediately and then every Interval until Close.
func (h *HeartBeat) Start() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			logrus.Debug("client sending HeartBeat() for job id: ", h.JobID, ", key: ", h.Key)
			ctx, cancel := context.WithTimeout(context.Background(), h.Interval)
			ack, err := h.Client.HeartBeat(ctx, &JobID{ID: h.JobID, Key: h.Key})
			cancel()
			if err != nil {
				h.report(err)
			} else if ack.Status {
				h.mu.Lock()
				h.completed = true
				h.mu.Unlock()
			}

			select {
			case <-h.done:
				return
			case <-time.After(h.Interval):
			}
		}
	}()
}

// report keeps the first unread error and never blocks the beat loop.
func (h *HeartBeat) report(err error) {
	select {
	case h.Beat <- err:
	default:
	}
}

// Check returns a pending heartbeat failure, if any. It never blocks.
func (h *HeartBeat) Check() error {
	select {
	case err := <-h.Beat:
		return err
	default:
		return nil
	}
}

// Completed reports whether the server has marked the job completed.
func (h *HeartBeat) Completed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.completed
}

// Close stops the beat loop and waits for it to exit. It is idempotent.
func (h *HeartBeat) Close() {
	h.once.Do(func() {
		close(h.done)
	})
	h.wg.Wait()
}
