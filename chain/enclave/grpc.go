// grpc.go wires the enclave Proxy to a real out-of-process channel over
// google.golang.org/grpc (§4.7's "framed request/response channel").
// Framing and authentication are the transport's concern, not the
// contract's (§6); this file registers a gob-based grpc codec so the
// request/response structs of enclave.go can cross the wire without a
// generated .proto — an ordinary choice when a service has exactly four
// small unary methods and no streaming.
package enclave

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const codecName = "gob"

type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(gobCodec{})
}

const serviceName = "mychain.enclave.Enclave"

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*grpcServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckChain", Handler: checkChainHandler},
		{MethodName: "ValidateTx", Handler: validateTxHandler},
		{MethodName: "Encrypt", Handler: encryptHandler},
		{MethodName: "EndBlock", Handler: endBlockHandler},
	},
}

// grpcServer adapts a Proxy implementation to the grpc.ServiceDesc handlers.
type grpcServer struct {
	impl Proxy
}

// RegisterServer exposes impl (typically the real enclave client-side, run
// co-located with the enclave runtime) as a grpc service.
func RegisterServer(s *grpc.Server, impl Proxy) {
	s.RegisterService(&serviceDesc, &grpcServer{impl: impl})
}

func checkChainHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	var req CheckChainRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	resp, err := srv.(*grpcServer).impl.CheckChain(req)
	return &resp, err
}

func validateTxHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	var req ValidateTxRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	resp, err := srv.(*grpcServer).impl.ValidateTx(req)
	return &resp, err
}

func encryptHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	var req EncryptRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	resp, err := srv.(*grpcServer).impl.Encrypt(req)
	return &resp, err
}

func endBlockHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
	var req EndBlockRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	resp, err := srv.(*grpcServer).impl.EndBlock(req)
	return &resp, err
}

// Client is a Proxy implementation backed by a grpc.ClientConn to the
// enclave-side service registered with RegisterServer.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the enclave's grpc endpoint using the gob codec.
func Dial(target string) (*Client, error) {
	conn, err := grpc.Dial(target, grpc.WithInsecure(), grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)))
	if err != nil {
		return nil, fmt.Errorf("enclave: dial %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) CheckChain(req CheckChainRequest) (CheckChainResponse, error) {
	var resp CheckChainResponse
	err := c.conn.Invoke(context.Background(), fmt.Sprintf("/%s/CheckChain", serviceName), &req, &resp)
	return resp, err
}

func (c *Client) ValidateTx(req ValidateTxRequest) (ValidateTxResponse, error) {
	var resp ValidateTxResponse
	err := c.conn.Invoke(context.Background(), fmt.Sprintf("/%s/ValidateTx", serviceName), &req, &resp)
	return resp, err
}

func (c *Client) Encrypt(req EncryptRequest) (EncryptResponse, error) {
	var resp EncryptResponse
	err := c.conn.Invoke(context.Background(), fmt.Sprintf("/%s/Encrypt", serviceName), &req, &resp)
	return resp, err
}

func (c *Client) EndBlock(req EndBlockRequest) (EndBlockResponse, error) {
	var resp EndBlockResponse
	err := c.conn.Invoke(context.Background(), fmt.Sprintf("/%s/EndBlock", serviceName), &req, &resp)
	return resp, err
}
