package grpc

// proto.go defines the gRPC server interface of fxledger.v1.ReconciliationService.
// Messages are plain Go structs carried by the JSON codec registered in json_codec.go,
// so there is no generated code to import.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified name of the reconciliation service
const ServiceName = "fxledger.v1.ReconciliationService"

// ReconciliationServiceServer is the server API for ReconciliationService
type ReconciliationServiceServer interface {
	NotifyTransaction(context.Context, *NotifyTransactionRequest) (*RebuildResponse, error)
	RebuildBucket(context.Context, *RebuildBucketRequest) (*RebuildResponse, error)
	BuildLedger(context.Context, *BuildLedgerRequest) (*BuildLedgerResponse, error)
	ResolveClosingRate(context.Context, *ResolveClosingRateRequest) (*ResolveClosingRateResponse, error)
	RecordMarketRate(context.Context, *RecordMarketRateRequest) (*RecordMarketRateResponse, error)
	mustEmbedUnimplementedReconciliationServiceServer()
}

// UnimplementedReconciliationServiceServer provides forward-compatible default implementations
type UnimplementedReconciliationServiceServer struct{}

func (UnimplementedReconciliationServiceServer) NotifyTransaction(context.Context, *NotifyTransactionRequest) (*RebuildResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method NotifyTransaction not implemented")
}
func (UnimplementedReconciliationServiceServer) RebuildBucket(context.Context, *RebuildBucketRequest) (*RebuildResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RebuildBucket not implemented")
}
func (UnimplementedReconciliationServiceServer) BuildLedger(context.Context, *BuildLedgerRequest) (*BuildLedgerResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method BuildLedger not implemented")
}
func (UnimplementedReconciliationServiceServer) ResolveClosingRate(context.Context, *ResolveClosingRateRequest) (*ResolveClosingRateResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ResolveClosingRate not implemented")
}
func (UnimplementedReconciliationServiceServer) RecordMarketRate(context.Context, *RecordMarketRateRequest) (*RecordMarketRateResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RecordMarketRate not implemented")
}
func (UnimplementedReconciliationServiceServer) mustEmbedUnimplementedReconciliationServiceServer() {}

// RegisterReconciliationServiceServer registers srv with the gRPC server
func RegisterReconciliationServiceServer(s grpclib.ServiceRegistrar, srv ReconciliationServiceServer) {
	s.RegisterService(&reconciliationServiceDesc, srv)
}

var reconciliationServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReconciliationServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "NotifyTransaction", Handler: notifyTransactionHandler},
		{MethodName: "RebuildBucket", Handler: rebuildBucketHandler},
		{MethodName: "BuildLedger", Handler: buildLedgerHandler},
		{MethodName: "ResolveClosingRate", Handler: resolveClosingRateHandler},
		{MethodName: "RecordMarketRate", Handler: recordMarketRateHandler},
	},
	Streams: []grpclib.StreamDesc{},
}

func notifyTransactionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	in := new(NotifyTransactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReconciliationServiceServer).NotifyTransaction(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/NotifyTransaction",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReconciliationServiceServer).NotifyTransaction(ctx, req.(*NotifyTransactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func rebuildBucketHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	in := new(RebuildBucketRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReconciliationServiceServer).RebuildBucket(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/RebuildBucket",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReconciliationServiceServer).RebuildBucket(ctx, req.(*RebuildBucketRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func buildLedgerHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	in := new(BuildLedgerRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReconciliationServiceServer).BuildLedger(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/BuildLedger",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReconciliationServiceServer).BuildLedger(ctx, req.(*BuildLedgerRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func resolveClosingRateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	in := new(ResolveClosingRateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReconciliationServiceServer).ResolveClosingRate(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/ResolveClosingRate",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReconciliationServiceServer).ResolveClosingRate(ctx, req.(*ResolveClosingRateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func recordMarketRateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	in := new(RecordMarketRateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReconciliationServiceServer).RecordMarketRate(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/RecordMarketRate",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReconciliationServiceServer).RecordMarketRate(ctx, req.(*RecordMarketRateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ReconciliationServiceClient is the client API for ReconciliationService.
// Calls always use the json content subtype.
type ReconciliationServiceClient interface {
	NotifyTransaction(ctx context.Context, in *NotifyTransactionRequest, opts ...grpclib.CallOption) (*RebuildResponse, error)
	RebuildBucket(ctx context.Context, in *RebuildBucketRequest, opts ...grpclib.CallOption) (*RebuildResponse, error)
	BuildLedger(ctx context.Context, in *BuildLedgerRequest, opts ...grpclib.CallOption) (*BuildLedgerResponse, error)
	ResolveClosingRate(ctx context.Context, in *ResolveClosingRateRequest, opts ...grpclib.CallOption) (*ResolveClosingRateResponse, error)
	RecordMarketRate(ctx context.Context, in *RecordMarketRateRequest, opts ...grpclib.CallOption) (*RecordMarketRateResponse, error)
}

type reconciliationServiceClient struct {
	cc grpclib.ClientConnInterface
}

// NewReconciliationServiceClient creates a client over cc
func NewReconciliationServiceClient(cc grpclib.ClientConnInterface) ReconciliationServiceClient {
	return &reconciliationServiceClient{cc: cc}
}

func (c *reconciliationServiceClient) invoke(ctx context.Context, method string, in, out interface{}, opts []grpclib.CallOption) error {
	opts = append([]grpclib.CallOption{grpclib.CallContentSubtype(jsonCodec{}.Name())}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *reconciliationServiceClient) NotifyTransaction(ctx context.Context, in *NotifyTransactionRequest, opts ...grpclib.CallOption) (*RebuildResponse, error) {
	out := new(RebuildResponse)
	if err := c.invoke(ctx, "NotifyTransaction", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *reconciliationServiceClient) RebuildBucket(ctx context.Context, in *RebuildBucketRequest, opts ...grpclib.CallOption) (*RebuildResponse, error) {
	out := new(RebuildResponse)
	if err := c.invoke(ctx, "RebuildBucket", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *reconciliationServiceClient) BuildLedger(ctx context.Context, in *BuildLedgerRequest, opts ...grpclib.CallOption) (*BuildLedgerResponse, error) {
	out := new(BuildLedgerResponse)
	if err := c.invoke(ctx, "BuildLedger", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *reconciliationServiceClient) ResolveClosingRate(ctx context.Context, in *ResolveClosingRateRequest, opts ...grpclib.CallOption) (*ResolveClosingRateResponse, error) {
	out := new(ResolveClosingRateResponse)
	if err := c.invoke(ctx, "ResolveClosingRate", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *reconciliationServiceClient) RecordMarketRate(ctx context.Context, in *RecordMarketRateRequest, opts ...grpclib.CallOption) (*RecordMarketRateResponse, error) {
	out := new(RecordMarketRateResponse)
	if err := c.invoke(ctx, "RecordMarketRate", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
