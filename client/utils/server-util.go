// Command utils sends admin requests to the token server.
package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/JRCondeNast/dataset/proto"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

func main() {
	t := time.Now()
	host := flag.String("host", "0.0.0.0:7001", "host")
	action := flag.String("action", "show",
		"action to perform: reset, rescan, shuffle, show, status")
	jobID := flag.String("job-id", "", "job id for the status action")
	timeout := flag.Duration("timeout", time.Minute, "request timeout")
	codec := flag.String("codec", proto.CodecProto, "wire codec: proto or msgpack")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.SetLevel(level)

	if !strings.Contains(*host, ":") {
		logrus.Fatal("--host needs a port number")
	}

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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := do(ctx, client, strings.ToLower(*action), *jobID); err != nil {
		logrus.Fatal(err)
	}
	logrus.Info("all done: ", time.Since(t))
}

func do(ctx context.Context, client proto.TokensClient, action, jobID string) error {
	logrus.Info("sending ", action, " request")
	switch action {
	case "reset":
		ack, err := client.Reset(ctx, &proto.Empty{})
		if err != nil {
			return err
		}
		logrus.Info("reset request completed: ", ack.N)
	case "rescan":
		ack, err := client.Rescan(ctx, &proto.Empty{})
		if err != nil {
			return err
		}
		logrus.Info("rescan request completed: ", ack.N)
	case "shuffle":
		ack, err := client.Shuffle(ctx, &proto.Empty{})
		if err != nil {
			return err
		}
		logrus.Info("shuffle request completed: ", ack.N)
	case "show":
		data, err := client.Show(ctx, &proto.Empty{})
		if err != nil {
			return err
		}
		logrus.Info("show request completed")
		for _, token := range data.Tokens {
			fmt.Println(token)
		}
	case "status":
		if jobID == "" {
			return fmt.Errorf("--job-id is required for status")
		}
		status, err := client.Status(ctx, &proto.JobID{ID: jobID})
		if err != nil {
			return err
		}
		if !status.Found {
			fmt.Printf("job %s: unknown\n", jobID)
			return nil
		}
		fmt.Printf("job %s: %d/%d assigned, %d leases open, completed %v, %s\n",
			status.ID, status.Assigned, status.Total, status.Leases, status.Completed, status.Elapsed())
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}
