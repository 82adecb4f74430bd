// Command client is a dry run worker: it leases batches from the token server
// like apps/batch does but only simulates inference, which makes it handy
// for load testing a server before models are deployed.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JRCondeNast/dataset/batch"
	"github.com/JRCondeNast/dataset/classifier"
	"github.com/JRCondeNast/dataset/proto"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

// delayClassifier sleeps instead of running a model. The input folder need
// not exist on the worker; files that cannot be stat'ed report size 0.
type delayClassifier struct {
	delay time.Duration
}

func (d delayClassifier) ClassifyFile(path string) (*classifier.Result, error) {
	t := time.Now()
	var size uint64
	if fi, err := os.Stat(path); err == nil {
		size = uint64(fi.Size())
	} else {
		logrus.Debug("no file info: ", err)
	}
	fileIOTime := time.Since(t)

	time.Sleep(d.delay)
	return &classifier.Result{
		Filename:    filepath.Base(path),
		FileSize:    size,
		FileIOTime:  fileIOTime,
		ComputeTime: d.delay,
	}, nil
}

func main() {
	t := time.Now()

	// flag management
	host := flag.String("host", "0.0.0.0:7001", "grpc server host:port")
	inDir := flag.String("input-dir", "/tf/images", "input dir")
	outDir := flag.String("out-dir", "/tmp", "output dir")
	jobID := flag.String("job-id", "default", "job id")
	batchSize := flag.Int("batch-size", 100, "batch size")
	numBatches := flag.Int("num-batches", 25, "number of batches to run")
	computeDelay := flag.Int("compute-delay", 100, "simulate compute delay in ms")
	codec := flag.String("codec", proto.CodecProto, "wire codec: proto or msgpack")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.SetLevel(level)

	if !strings.Contains(*host, ":") {
		logrus.Fatal("--host requires a port number")
	}

	if *jobID == "default" {
		*jobID = uuid.New().String()
		logrus.Info("job id: ", *jobID)
	}

	if *computeDelay < 0 {
		logrus.Fatal("--compute-delay has to be a positive integer")
	}

	// dial GRPC server
	logrus.Info("dialing grpc: ", *host)
	conn, err := grpc.Dial(*host, grpc.WithInsecure())
	if err != nil {
		logrus.Fatal(err)
	}
	defer conn.Close()
	client, err := proto.NewTokensClientCodec(conn, *codec)
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.Info("connected to grpc server: ", *host)

	r := &batch.Runner{
		Classifier: delayClassifier{delay: time.Millisecond * time.Duration(*computeDelay)},
		Source:     &batch.RemoteSource{Client: client, JobID: *jobID},
		InputDir:   *inDir,
		JobID:      *jobID,
		BatchSize:  *batchSize,
		NumBatches: *numBatches,
	}
	sum, fileName, err := batch.Collect(context.Background(), r, *outDir)
	if fileName != "" {
		logrus.Info("writing output: ", fileName)
	}
	if err != nil {
		logrus.Fatal(err)
	}

	// all done
	logrus.WithField("batches", sum.Batches).
		WithField("discarded", sum.Discarded).
		Info("all done: ", time.Since(t))
}
