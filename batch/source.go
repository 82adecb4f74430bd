package batch

import (
	"context"
	"time"

	"github.com/JRCondeNast/dataset/proto"
	"github.com/JRCondeNast/dataset/scheduler"
	"github.com/sirupsen/logrus"
)

// Batch is a set of file names, identified by a lease key when it came from
// the token server.
type Batch struct {
	Key    string
	Tokens []string
}

// Lease tracks one batch while it is processed.
type Lease interface {
	// Check reports a lost lease. It never blocks.
	Check() error
	// Commit ends the lease and reports whether results may be written.
	Commit(ctx context.Context) (bool, error)
	// Abort gives up the lease without committing.
	Abort()
}

// Source hands out batches. A nil batch means there is no more work.
type Source interface {
	Next(ctx context.Context, size int) (*Batch, Lease, error)
}

// DirSource splits a local directory listing into batches.
type DirSource struct {
	files []string
	next  int
}

// NewDirSource lists the images of dir.
func NewDirSource(dir string) (*DirSource, error) {
	files, err := scheduler.ScanDir(dir, scheduler.IsImage)
	if err != nil {
		return nil, err
	}
	return &DirSource{files: files}, nil
}

func (d *DirSource) Next(ctx context.Context, size int) (*Batch, Lease, error) {
	if d.next >= len(d.files) {
		return nil, nil, nil
	}
	end := d.next + size
	if end > len(d.files) {
		end = len(d.files)
	}
	b := &Batch{Tokens: d.files[d.next:end]}
	d.next = end
	return b, localLease{}, nil
}

type localLease struct{}

func (localLease) Check() error {
	return nil
}

func (localLease) Commit(ctx context.Context) (bool, error) {
	return true, nil
}

func (localLease) Abort() {}

// RemoteSource leases batches from the token server.
type RemoteSource struct {
	Client proto.TokensClient
	JobID  string
	// BeatInterval overrides the heartbeat cadence when non-zero.
	BeatInterval time.Duration
}

func (r *RemoteSource) Next(ctx context.Context, size int) (*Batch, Lease, error) {
	logrus.Info("requested tokens: ", size)
	data, err := r.Client.Get(ctx, &proto.JobID{ID: r.JobID, BatchSize: int32(size)})
	if err != nil {
		return nil, nil, err
	}
	if len(data.Tokens) == 0 {
		logrus.Info("received tokens: ", len(data.Tokens), ", exiting")
		return nil, nil, nil
	}
	logrus.Info("received tokens: ", len(data.Tokens))

	heartBeat := proto.NewHeartBeat(r.Client, r.JobID, data.Key)
	if r.BeatInterval > 0 {
		heartBeat.Interval = r.BeatInterval
	}
	heartBeat.Start()
	return &Batch{Key: data.Key, Tokens: data.Tokens}, &remoteLease{source: r, key: data.Key, heartBeat: heartBeat}, nil
}

type remoteLease struct {
	source    *RemoteSource
	key       string
	heartBeat *proto.HeartBeat
}

func (l *remoteLease) Check() error {
	return l.heartBeat.Check()
}

func (l *remoteLease) Abort() {
	l.heartBeat.Close()
}

func (l *remoteLease) Commit(ctx context.Context) (bool, error) {
	l.heartBeat.Close()
	ack, err := l.source.Client.Done(ctx, &proto.JobID{Key: l.key, ID: l.source.JobID})
	if err != nil {
		return false, err
	}
	if !ack.Status {
		logrus.WithField("key", l.key).Warn("received not-ok to write signal from server")
	}
	return ack.Status, nil
}
