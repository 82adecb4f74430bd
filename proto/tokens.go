// Package proto defines the Tokens service used to lease batches of image
// file names to classification workers. Messages are declared by hand with
// protobuf struct tags, so they travel on gRPC's default proto codec; the
// msgpack codec can be selected per client instead.
package proto

import (
	"context"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
)

const serviceName = "tokens.Tokens"

// JobID identifies a job and, for leases, the batch key.
type JobID struct {
	ID        string `protobuf:"bytes,1,opt,name=id,proto3" msgpack:"id"`
	Key       string `protobuf:"bytes,2,opt,name=key,proto3" msgpack:"key"`
	BatchSize int32  `protobuf:"varint,3,opt,name=batch_size,json=batchSize,proto3" msgpack:"batch_size"`
}

func (m *JobID) Reset()         { *m = JobID{} }
func (m *JobID) String() string { return proto.CompactTextString(m) }
func (*JobID) ProtoMessage()    {}

// Data carries a leased batch, or the full token list for Show.
type Data struct {
	Tokens []string `protobuf:"bytes,1,rep,name=tokens,proto3" msgpack:"tokens"`
	Key    string   `protobuf:"bytes,2,opt,name=key,proto3" msgpack:"key"`
}

func (m *Data) Reset()         { *m = Data{} }
func (m *Data) String() string { return proto.CompactTextString(m) }
func (*Data) ProtoMessage()    {}

// Ack acknowledges a request. N is the number of tokens known to the server.
type Ack struct {
	Status bool  `protobuf:"varint,1,opt,name=status,proto3" msgpack:"status"`
	N      int32 `protobuf:"varint,2,opt,name=n,proto3" msgpack:"n"`
}

func (m *Ack) Reset()         { *m = Ack{} }
func (m *Ack) String() string { return proto.CompactTextString(m) }
func (*Ack) ProtoMessage()    {}

// Empty is the request of the admin calls.
type Empty struct{}

func (m *Empty) Reset()         { *m = Empty{} }
func (m *Empty) String() string { return proto.CompactTextString(m) }
func (*Empty) ProtoMessage()    {}

// JobStatus reports the progress of one job. Times are carried as
// nanoseconds.
type JobStatus struct {
	ID        string `protobuf:"bytes,1,opt,name=id,proto3" msgpack:"id"`
	Found     bool   `protobuf:"varint,2,opt,name=found,proto3" msgpack:"found"`
	Assigned  int32  `protobuf:"varint,3,opt,name=assigned,proto3" msgpack:"assigned"`
	Total     int32  `protobuf:"varint,4,opt,name=total,proto3" msgpack:"total"`
	Leases    int32  `protobuf:"varint,5,opt,name=leases,proto3" msgpack:"leases"`
	Completed bool   `protobuf:"varint,6,opt,name=completed,proto3" msgpack:"completed"`
	StartTime int64  `protobuf:"varint,7,opt,name=start_time,json=startTime,proto3" msgpack:"start_time"`
	Duration  int64  `protobuf:"varint,8,opt,name=duration,proto3" msgpack:"duration"`
}

func (m *JobStatus) Reset()         { *m = JobStatus{} }
func (m *JobStatus) String() string { return proto.CompactTextString(m) }
func (*JobStatus) ProtoMessage()    {}

// Started returns StartTime as a time.
func (m *JobStatus) Started() time.Time {
	return time.Unix(0, m.StartTime)
}

// Elapsed returns Duration as a time.Duration.
func (m *JobStatus) Elapsed() time.Duration {
	return time.Duration(m.Duration)
}

// TokensClient is the client API of the Tokens service.
type TokensClient interface {
	Get(ctx context.Context, in *JobID, opts ...grpc.CallOption) (*Data, error)
	Done(ctx context.Context, in *JobID, opts ...grpc.CallOption) (*Ack, error)
	HeartBeat(ctx context.Context, in *JobID, opts ...grpc.CallOption) (*Ack, error)
	Status(ctx context.Context, in *JobID, opts ...grpc.CallOption) (*JobStatus, error)
	Reset(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error)
	Rescan(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error)
	Shuffle(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error)
	Show(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Data, error)
}

type tokensClient struct {
	cc   grpc.ClientConnInterface
	opts []grpc.CallOption
}

// NewTokensClient returns a client using gRPC's proto codec.
func NewTokensClient(cc grpc.ClientConnInterface) TokensClient {
	return &tokensClient{cc: cc}
}

// NewTokensClientCodec returns a client encoding calls with the named codec,
// CodecProto or CodecMsgpack.
func NewTokensClientCodec(cc grpc.ClientConnInterface, codec string) (TokensClient, error) {
	switch codec {
	case CodecProto, "":
		return NewTokensClient(cc), nil
	case CodecMsgpack:
		return &tokensClient{cc: cc, opts: []grpc.CallOption{grpc.CallContentSubtype(CodecMsgpack)}}, nil
	}
	return nil, errors.Errorf("unknown codec %q", codec)
}

func (c *tokensClient) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	opts = append(append([]grpc.CallOption{}, c.opts...), opts...)
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...)
}

func (c *tokensClient) Get(ctx context.Context, in *JobID, opts ...grpc.CallOption) (*Data, error) {
	out := new(Data)
	if err := c.invoke(ctx, "Get", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tokensClient) Done(ctx context.Context, in *JobID, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	if err := c.invoke(ctx, "Done", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tokensClient) HeartBeat(ctx context.Context, in *JobID, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	if err := c.invoke(ctx, "HeartBeat", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tokensClient) Status(ctx context.Context, in *JobID, opts ...grpc.CallOption) (*JobStatus, error) {
	out := new(JobStatus)
	if err := c.invoke(ctx, "Status", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tokensClient) Reset(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	if err := c.invoke(ctx, "Reset", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tokensClient) Rescan(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	if err := c.invoke(ctx, "Rescan", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tokensClient) Shuffle(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Ack, error) {
	out := new(Ack)
	if err := c.invoke(ctx, "Shuffle", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tokensClient) Show(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Data, error) {
	out := new(Data)
	if err := c.invoke(ctx, "Show", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// TokensServer is the server API of the Tokens service.
type TokensServer interface {
	Get(context.Context, *JobID) (*Data, error)
	Done(context.Context, *JobID) (*Ack, error)
	HeartBeat(context.Context, *JobID) (*Ack, error)
	Status(context.Context, *JobID) (*JobStatus, error)
	Reset(context.Context, *Empty) (*Ack, error)
	Rescan(context.Context, *Empty) (*Ack, error)
	Shuffle(context.Context, *Empty) (*Ack, error)
	Show(context.Context, *Empty) (*Data, error)
}

// RegisterTokensServer registers srv with s.
func RegisterTokensServer(s grpc.ServiceRegistrar, srv TokensServer) {
	s.RegisterService(&tokensServiceDesc, srv)
}

var tokensServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*TokensServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Get", TokensServer.Get),
		unary("Done", TokensServer.Done),
		unary("HeartBeat", TokensServer.HeartBeat),
		unary("Status", TokensServer.Status),
		unary("Reset", TokensServer.Reset),
		unary("Rescan", TokensServer.Rescan),
		unary("Shuffle", TokensServer.Shuffle),
		unary("Show", TokensServer.Show),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tokens",
}

func unary[Req, Resp any](method string, call func(TokensServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TokensServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + serviceName + "/" + method,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(TokensServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
