package proto

import (
	"github.com/vmihailenco/msgpack"
	"google.golang.org/grpc/encoding"
)

// Codec names accepted by NewTokensClientCodec. CodecMsgpack is also the
// gRPC content subtype of the msgpack codec.
const (
	CodecProto   = "proto"
	CodecMsgpack = "msgpack"
)

// codec lets workers talk msgpack to the server instead of protobuf.
type codec struct{}

func (codec) Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (codec) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

func (codec) Name() string {
	return CodecMsgpack
}

func init() {
	encoding.RegisterCodec(codec{})
}
