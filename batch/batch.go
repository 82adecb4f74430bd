// Package batch classifies a folder of images batch by batch, either on its
// own or with batches leased from the token server, and collects one JSON
// line per image.
package batch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/JRCondeNast/dataset/classifier"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Classifier classifies one image file.
type Classifier interface {
	ClassifyFile(path string) (*classifier.Result, error)
}

// Runner drives the batch loop.
type Runner struct {
	Classifier Classifier
	Source     Source
	InputDir   string
	JobID      string
	BatchSize  int
	NumBatches int
	// Workers read and classify files of one batch concurrently.
	Workers int
}

// Summary counts what a run did.
type Summary struct {
	Batches    int
	Classified int
	Failed     int
	Discarded  int
}

// Run processes up to NumBatches batches and writes the JSON lines of every
// committed batch to w. Lines of committed batches are flushed to w even when
// a later batch fails.
func (r *Runner) Run(ctx context.Context, w io.Writer) (sum Summary, err error) {
	if r.BatchSize <= 0 {
		return sum, errors.Errorf("batch size has to be a positive integer, got %d", r.BatchSize)
	}
	if r.NumBatches <= 0 {
		return sum, errors.Errorf("number of batches has to be a positive integer, got %d", r.NumBatches)
	}

	bw := bufio.NewWriter(w)
	defer func() {
		if ferr := bw.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}()
	for i := 0; i < r.NumBatches; i++ {
		b, lease, err := r.Source.Next(ctx, r.BatchSize)
		if err != nil {
			return sum, err
		}
		if b == nil {
			break
		}

		logrus.Info("computing")
		t := time.Now()
		lines, failed, err := r.process(ctx, b, lease)
		if err != nil {
			lease.Abort()
			return sum, err
		}
		logrus.Info("client looping over tokens took: ", time.Since(t), ", for jobID: ", r.JobID, ", batch: ", i)

		ok, err := lease.Commit(ctx)
		if err != nil {
			return sum, err
		}
		sum.Batches++
		sum.Failed += failed
		if !ok {
			sum.Discarded += len(lines)
			continue
		}
		for _, line := range lines {
			if _, err := bw.Write(line); err != nil {
				return sum, err
			}
			if err := bw.WriteByte('\n'); err != nil {
				return sum, err
			}
		}
		sum.Classified += len(lines)
	}
	return sum, nil
}

// process classifies a batch. Per file errors are logged and skipped; a lost
// lease or a cancelled context aborts the batch.
func (r *Runner) process(ctx context.Context, b *Batch, lease Lease) ([][]byte, int, error) {
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([][]byte, len(b.Tokens))
	var failed int64

	g, ctx := errgroup.WithContext(ctx)
	indices := make(chan int)
	g.Go(func() error {
		defer close(indices)
		for i := range b.Tokens {
			select {
			case indices <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range indices {
				token := b.Tokens[i]
				line, err := r.classify(token)
				if err != nil {
					logrus.Error(err)
					atomic.AddInt64(&failed, 1)
				} else {
					results[i] = line
				}

				// check server's response to client's heartbeat
				if err := lease.Check(); err != nil {
					return errors.Wrap(err, "lease lost")
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	lines := make([][]byte, 0, len(results))
	for _, line := range results {
		if line != nil {
			lines = append(lines, line)
		}
	}
	return lines, int(failed), nil
}

func (r *Runner) classify(token string) ([]byte, error) {
	result, err := r.Classifier.ClassifyFile(filepath.Join(r.InputDir, token))
	if err != nil {
		return nil, err
	}
	result.Filename = token

	jb, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrapf(err, "error in json marshaling: %s", token)
	}
	return jb, nil
}

// WriteOutput stores data as <outDir>/<jobID>/<jobID>_<hex timestamp>.json
// and returns the file name. Nothing is written for empty data.
func WriteOutput(outDir, jobID string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	timeStamp := strconv.FormatInt(time.Now().UnixNano(), 16)
	dirName := filepath.Join(outDir, jobID)
	fileName := filepath.Join(dirName, jobID+"_"+timeStamp+".json")

	if err := os.MkdirAll(dirName, 0755); err != nil {
		return "", err
	}
	if err := ioutil.WriteFile(fileName, data, 0644); err != nil {
		return "", err
	}
	return fileName, nil
}

// Collect runs r into memory and writes the output file. The server forgets
// committed batches, so their results are written even when the run fails;
// the run error is returned along with the file name.
func Collect(ctx context.Context, r *Runner, outDir string) (Summary, string, error) {
	var b bytes.Buffer
	sum, runErr := r.Run(ctx, &b)
	fileName, err := WriteOutput(outDir, r.JobID, b.Bytes())
	if runErr != nil {
		if err != nil {
			logrus.WithField("jobID", r.JobID).Error("could not write output: ", err)
		}
		return sum, fileName, runErr
	}
	return sum, fileName, err
}
