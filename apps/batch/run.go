package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JRCondeNast/dataset/batch"
	"github.com/JRCondeNast/dataset/classifier"
	"github.com/JRCondeNast/dataset/config"
	"github.com/JRCondeNast/dataset/engine"
	"github.com/JRCondeNast/dataset/labels"
	"github.com/JRCondeNast/dataset/proto"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

func run(cfg config.Config) error {
	t0 := time.Now()

	if *jobID == "default" {
		*jobID = uuid.New().String()
		logrus.Info("using job id:", *jobID)
	}

	labelmap, err := labels.LoadLabelMap(cfg.Labelmap, cfg.NumClasses)
	if err != nil {
		return err
	}
	dict, err := labels.LoadDict(cfg.Dict)
	if err != nil {
		return err
	}

	logrus.Info("loading model")
	scorer, err := engine.Open(cfg.Model())
	if err != nil {
		return err
	}
	cls, err := classifier.New(scorer, labelmap, dict, cfg.N)
	if err != nil {
		scorer.Close()
		return err
	}
	defer cls.Close()
	logrus.Info("model loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var source batch.Source
	if *useNoHost {
		if source, err = batch.NewDirSource(*inDir); err != nil {
			return err
		}
	} else {
		logrus.Info("dialing grpc server: ", *host)
		conn, err := grpc.Dial(*host, grpc.WithInsecure())
		if err != nil {
			return err
		}
		defer conn.Close()
		client, err := proto.NewTokensClientCodec(conn, *codec)
		if err != nil {
			return err
		}
		source = &batch.RemoteSource{Client: client, JobID: *jobID}
		logrus.Info("connected to grpc server: ", *host)
	}

	r := &batch.Runner{
		Classifier: cls,
		Source:     source,
		InputDir:   *inDir,
		JobID:      *jobID,
		BatchSize:  *batchSize,
		NumBatches: *numBatches,
		Workers:    *workers,
	}
	sum, fileName, err := batch.Collect(ctx, r, *outDir)
	if fileName != "" {
		logrus.Info("output written to: ", fileName)
	}
	if err != nil {
		return err
	}

	logrus.WithField("batches", sum.Batches).
		WithField("classified", sum.Classified).
		WithField("failed", sum.Failed).
		WithField("discarded", sum.Discarded).
		Info("job done")
	logrus.Info("total time: ", time.Since(t0))
	return nil
}
