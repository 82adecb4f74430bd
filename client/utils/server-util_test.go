package main

import (
	"context"
	"errors"
	"testing"

	"github.com/JRCondeNast/dataset/proto"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
)

type fakeClient struct {
	proto.TokensClient
	calls []string
	err   error
}

func (f *fakeClient) ack(name string) (*proto.Ack, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return nil, f.err
	}
	return &proto.Ack{Status: true, N: 3}, nil
}

func (f *fakeClient) Reset(ctx context.Context, in *proto.Empty, opts ...grpc.CallOption) (*proto.Ack, error) {
	return f.ack("reset")
}

func (f *fakeClient) Rescan(ctx context.Context, in *proto.Empty, opts ...grpc.CallOption) (*proto.Ack, error) {
	return f.ack("rescan")
}

func (f *fakeClient) Shuffle(ctx context.Context, in *proto.Empty, opts ...grpc.CallOption) (*proto.Ack, error) {
	return f.ack("shuffle")
}

func (f *fakeClient) Show(ctx context.Context, in *proto.Empty, opts ...grpc.CallOption) (*proto.Data, error) {
	f.calls = append(f.calls, "show")
	return &proto.Data{Tokens: []string{"a.jpg"}}, f.err
}

func (f *fakeClient) Status(ctx context.Context, in *proto.JobID, opts ...grpc.CallOption) (*proto.JobStatus, error) {
	f.calls = append(f.calls, "status:"+in.ID)
	return &proto.JobStatus{ID: in.ID, Found: in.ID == "known"}, f.err
}

func TestDoDispatches(t *testing.T) {
	client := &fakeClient{}
	ctx := context.Background()
	for _, action := range []string{"reset", "rescan", "shuffle", "show"} {
		assert.NoError(t, do(ctx, client, action, ""))
	}
	assert.NoError(t, do(ctx, client, "status", "known"))
	assert.NoError(t, do(ctx, client, "status", "unknown"))
	assert.Equal(t, []string{"reset", "rescan", "shuffle", "show", "status:known", "status:unknown"}, client.calls)
}

func TestDoErrors(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, do(ctx, &fakeClient{}, "explode", ""))
	assert.Error(t, do(ctx, &fakeClient{}, "status", ""))
	assert.Error(t, do(ctx, &fakeClient{err: errors.New("down")}, "reset", ""))
}
