// Command server leases batches of image file names to classification
// workers over gRPC.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/JRCondeNast/dataset/proto"
	"github.com/JRCondeNast/dataset/scheduler"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

func main() {
	folder := flag.String("dir", "/tf/images", "folder to scan for images")
	host := flag.String("host", ":7001", "gRPC host in host:port format")
	allFiles := flag.Bool("all-files", false, "lease every file, not only jpg/jpeg/png")
	leaseTimeout := flag.Duration("lease-timeout", scheduler.DefaultLeaseTimeout,
		"re-assign a batch after this long without heartbeat")
	retention := flag.Duration("retention", scheduler.DefaultRetention, "forget jobs after this long")
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

	filter := scheduler.IsImage
	if *allFiles {
		filter = nil
	}
	sched, err := scheduler.New(*folder, filter)
	if err != nil {
		logrus.Fatal(err)
	}
	sched.LeaseTimeout = *leaseTimeout
	sched.Retention = *retention
	logrus.WithField("dir", *folder).
		WithField("count", sched.Len()).
		Info("scanned folder")

	lis, err := net.Listen("tcp", *host)
	if err != nil {
		logrus.Fatal(err)
	}
	s := grpc.NewServer()
	proto.RegisterTokensServer(s, sched)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logrus.Info("listening on ", *host)
		logrus.Info("ctrl-c to exit")
		return s.Serve(lis)
	})
	g.Go(func() error {
		return sched.RunCleaner(ctx, time.Hour)
	})
	g.Go(func() error {
		<-ctx.Done()
		logrus.Info("stopping server")
		s.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logrus.Fatal(err)
	}
}
