// Package scheduler leases batches of file names from a folder to workers.
// Each job walks the whole folder once; a batch is handed out under a key,
// kept alive by heartbeats and retired by Done. Batches whose heartbeat went
// stale are handed out again once the folder is exhausted.
package scheduler

import (
	"context"
	"io/ioutil"
	"math/rand"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JRCondeNast/dataset/proto"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultLeaseTimeout is how long a batch survives without heartbeat.
	DefaultLeaseTimeout = time.Minute
	// DefaultRetention is how long job bookkeeping is kept.
	DefaultRetention = 24 * time.Hour

	keyLength = 8
)

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// ErrUnknownJob is returned for heartbeats of jobs the server does not know.
var ErrUnknownJob = errors.New("job id not present")

type lease struct {
	start, count  int
	lastHeartbeat time.Time
}

// Job is the bookkeeping of one job id.
type Job struct {
	currentIndex  int
	StartTime     time.Time
	EndTime       time.Time
	Completed     bool
	TotalDuration time.Duration
	leases        map[string]*lease
}

// Scheduler implements proto.TokensServer.
type Scheduler struct {
	LeaseTimeout time.Duration
	Retention    time.Duration
	Filter       func(name string) bool

	mu     sync.Mutex
	folder string
	tokens []string
	jobs   map[string]*Job
	rand   *rand.Rand
	now    func() time.Time
}

var _ proto.TokensServer = (*Scheduler)(nil)

// New scans folder and returns a scheduler over the files that pass filter.
// A nil filter accepts every regular file.
func New(folder string, filter func(name string) bool) (*Scheduler, error) {
	s := &Scheduler{
		LeaseTimeout: DefaultLeaseTimeout,
		Retention:    DefaultRetention,
		Filter:       filter,
		folder:       folder,
		jobs:         make(map[string]*Job),
		rand:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:          time.Now,
	}
	if err := s.scan(); err != nil {
		return nil, err
	}
	return s, nil
}

// IsImage accepts the file extensions the classifier can decode.
func IsImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// ScanDir lists the regular files of dir accepted by filter, sorted by name.
func ScanDir(dir string, filter func(name string) bool) ([]string, error) {
	files, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if filter != nil && !filter(f.Name()) {
			continue
		}
		names = append(names, f.Name())
	}
	return names, nil
}

// scan relists the folder and forgets all jobs.
func (s *Scheduler) scan() error {
	tokens, err := ScanDir(s.folder, s.Filter)
	if err != nil {
		return errors.Wrapf(err, "could not scan %s", s.folder)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
	s.jobs = make(map[string]*Job)
	return nil
}

// Len is the number of known tokens.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

func (s *Scheduler) job(id string) *Job {
	job, present := s.jobs[id]
	if !present {
		job = &Job{
			StartTime: s.now(),
			leases:    make(map[string]*lease),
		}
		s.jobs[id] = job
	}
	return job
}

func (s *Scheduler) newKey(job *Job) string {
	for {
		b := make([]rune, keyLength)
		for i := range b {
			b[i] = letterRunes[s.rand.Intn(len(letterRunes))]
		}
		if _, taken := job.leases[string(b)]; !taken {
			return string(b)
		}
	}
}

// Get leases the next batch of the job, or re-leases a stale one.
func (s *Scheduler) Get(ctx context.Context, in *proto.JobID) (*proto.Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	logrus.WithField("jobID", in.ID).
		WithField("signal", "get").
		Info("get request")

	if in.BatchSize <= 0 {
		return nil, errors.Errorf("batch size has to be a positive integer, got %d", in.BatchSize)
	}

	job := s.job(in.ID)
	ind := job.currentIndex
	batchSize := int(in.BatchSize)
	if batchSize > len(s.tokens)-ind {
		batchSize = len(s.tokens) - ind
	}

	if batchSize > 0 {
		key := s.newKey(job)
		job.currentIndex += batchSize
		job.leases[key] = &lease{start: ind, count: batchSize, lastHeartbeat: s.now()}
		job.Completed = false
		tokens := make([]string, batchSize)
		copy(tokens, s.tokens[ind:ind+batchSize])
		logrus.WithField("key", key).
			WithField("count", len(tokens)).
			WithField("jobID", in.ID).
			Info("assigned")
		return &proto.Data{Tokens: tokens, Key: key}, nil
	}

	if len(job.leases) == 0 {
		logrus.WithField("jobID", in.ID).
			Info("nothing pending")
		return &proto.Data{}, nil
	}

	// try to assign previously assigned work, oldest heartbeat first
	keys := make([]string, 0, len(job.leases))
	for key := range job.leases {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return job.leases[keys[i]].lastHeartbeat.Before(job.leases[keys[j]].lastHeartbeat)
	})
	for _, key := range keys {
		l := job.leases[key]
		if l.start < 0 || l.count < 0 || l.start+l.count > len(s.tokens) {
			return nil, errors.New("bookkeeping fault for JobId: " + in.ID)
		}
		if s.now().Sub(l.lastHeartbeat) <= s.LeaseTimeout {
			continue
		}
		l.lastHeartbeat = s.now()
		tokens := make([]string, l.count)
		copy(tokens, s.tokens[l.start:l.start+l.count])
		logrus.WithField("key", key).
			WithField("count", len(tokens)).
			WithField("jobID", in.ID).
			Info("re-assigned")
		return &proto.Data{Tokens: tokens, Key: key}, nil
	}

	logrus.WithField("jobID", in.ID).
		WithField("leases", len(job.leases)).
		Info("all remaining batches are leased")
	return &proto.Data{}, nil
}

// Done retires a lease. Status is true only if the lease was still held,
// which tells the worker its results may be written.
func (s *Scheduler) Done(ctx context.Context, in *proto.JobID) (*proto.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logrus.WithField("signal", "done").
		WithField("jobID", in.ID).WithField("key", in.Key).
		Info("done")

	job, present := s.jobs[in.ID]
	if !present {
		logrus.WithField("jobID", in.ID).
			Info("server could not find job id")
		return &proto.Ack{N: int32(len(s.tokens))}, nil
	}
	if _, present = job.leases[in.Key]; !present {
		logrus.WithField("jobID", in.ID).
			WithField("key", in.Key).
			Info("key not found")
		return &proto.Ack{N: int32(len(s.tokens))}, nil
	}

	delete(job.leases, in.Key)
	if len(job.leases) == 0 && job.currentIndex >= len(s.tokens) {
		job.Completed = true
		job.EndTime = s.now()
		job.TotalDuration = job.EndTime.Sub(job.StartTime)
		logrus.WithField("jobID", in.ID).
			WithField("completed", job.Completed).
			WithField("duration", job.TotalDuration).Info("done")
	}
	return &proto.Ack{Status: true, N: int32(len(s.tokens))}, nil
}

// HeartBeat refreshes a lease. Status reports whether the job is completed.
func (s *Scheduler) HeartBeat(ctx context.Context, in *proto.JobID) (*proto.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	logrus.WithField("jobID", in.ID).
		WithField("key", in.Key).
		WithField("signal", "heartbeat").
		Debug("received heartbeat")

	job, present := s.jobs[in.ID]
	if !present {
		return nil, errors.Wrap(ErrUnknownJob, in.ID)
	}
	if l, ok := job.leases[in.Key]; ok {
		l.lastHeartbeat = s.now()
	}
	return &proto.Ack{Status: job.Completed, N: int32(len(s.tokens))}, nil
}

// Status reports the progress of a job.
func (s *Scheduler) Status(ctx context.Context, in *proto.JobID) (*proto.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := &proto.JobStatus{ID: in.ID, Total: int32(len(s.tokens))}
	job, present := s.jobs[in.ID]
	if !present {
		return out, nil
	}
	out.Found = true
	out.Assigned = int32(job.currentIndex)
	out.Leases = int32(len(job.leases))
	out.Completed = job.Completed
	out.StartTime = job.StartTime.UnixNano()
	if job.Completed {
		out.Duration = int64(job.TotalDuration)
	} else {
		out.Duration = int64(s.now().Sub(job.StartTime))
	}
	return out, nil
}

// Reset forgets every job.
func (s *Scheduler) Reset(ctx context.Context, in *proto.Empty) (*proto.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	logrus.WithField("signal", "reset").
		Info("deleting history")

	s.jobs = make(map[string]*Job)
	return &proto.Ack{Status: true, N: int32(len(s.tokens))}, nil
}

// Rescan relists the folder, which also forgets every job.
func (s *Scheduler) Rescan(ctx context.Context, in *proto.Empty) (*proto.Ack, error) {
	if err := s.scan(); err != nil {
		return nil, err
	}
	n := s.Len()
	logrus.WithField("signal", "rescan").
		WithField("count", n).
		Info("scanning folder")

	return &proto.Ack{Status: true, N: int32(n)}, nil
}

// Shuffle permutes the token order. Jobs in progress keep their index
// ranges, so shuffle before starting jobs.
func (s *Scheduler) Shuffle(ctx context.Context, in *proto.Empty) (*proto.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logrus.WithField("signal", "shuffle").
		WithField("count", len(s.tokens)).
		Info("shuffling tokens")
	s.rand.Shuffle(len(s.tokens), func(i, j int) {
		s.tokens[i], s.tokens[j] = s.tokens[j], s.tokens[i]
	})
	return &proto.Ack{Status: true, N: int32(len(s.tokens))}, nil
}

// Show lists all tokens.
func (s *Scheduler) Show(ctx context.Context, in *proto.Empty) (*proto.Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logrus.WithField("signal", "show").
		WithField("count", len(s.tokens)).
		Info("listing tokens")
	out := &proto.Data{Tokens: make([]string, len(s.tokens))}
	copy(out.Tokens, s.tokens)
	return out, nil
}

// Purge drops jobs started longer than Retention ago and returns how many
// were dropped.
func (s *Scheduler) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, job := range s.jobs {
		if s.now().Sub(job.StartTime) >= s.Retention {
			delete(s.jobs, id)
			purged++
		}
	}
	return purged
}

// RunCleaner purges old jobs every interval until ctx is done.
func (s *Scheduler) RunCleaner(ctx context.Context, interval time.Duration) error {
	logrus.Info("starting cleaner bot")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			purged := s.Purge()
			logrus.WithField("count", s.Len()).
				WithField("purged", purged).
				Info("cleanup bot")
		}
	}
}
