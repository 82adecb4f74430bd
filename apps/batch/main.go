// Command batch classifies every image of a folder and writes the results as
// JSON lines under --out-dir. With a token server it only works on the
// batches the server leases to it, so several replicas can share a folder.
package main

import (
	"flag"
	"strings"

	"github.com/JRCondeNast/dataset/config"
	"github.com/JRCondeNast/dataset/proto"
	"github.com/sirupsen/logrus"
)

var (
	useNoHost  *bool
	host       *string
	inDir      *string
	outDir     *string
	jobID      *string
	batchSize  *int
	numBatches *int
	workers    *int
	configFile *string
	logLevel   *string
	codec      *string
)

func main() {
	// flag management
	useNoHost = flag.Bool("use-no-host", false, "do not communicate with host")
	host = flag.String("host", "0.0.0.0:7001", "grpc server host:port")
	inDir = flag.String("input-dir", "/tf/images", "input dir")
	outDir = flag.String("out-dir", "/tf/out", "output dir")
	jobID = flag.String("job-id", "default", "job id")
	batchSize = flag.Int("batch-size", 100, "batch size")
	numBatches = flag.Int("num-batches", 25, "number of batches to run")
	workers = flag.Int("workers", 1, "files of a batch classified concurrently")
	configFile = flag.String("config", "", "YAML file with model settings")
	logLevel = flag.String("log-level", "info", "debug, info, warn or error")
	codec = flag.String("codec", proto.CodecProto, "wire codec: proto or msgpack")

	config.RegisterModelFlags(flag.CommandLine, config.Default())
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.SetLevel(level)

	if !strings.Contains(*host, ":") {
		logrus.Fatal("--host requires a port number")
	}

	cfg, err := settings()
	if err != nil {
		logrus.Fatal(err)
	}

	if err := run(cfg); err != nil {
		logrus.Fatal(err)
	}
}

// settings resolves defaults, then the config file, then explicitly set flags.
func settings() (config.Config, error) {
	return config.Resolve(*configFile, config.FlagValues(flag.CommandLine))
}
