package api

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "cellar.Cellar"

// handlerFor adapts a typed (*Server, context.Context, *Req) -> (*Resp,
// error) method into the untyped grpc.methodHandler shape RegisterService
// expects, without generated protobuf stubs: newReq allocates the request
// value dec() fills in, and invoke dispatches to the Server method.
func handlerFor(
	fullMethod string,
	newReq func() interface{},
	invoke func(s *Server, ctx context.Context, req interface{}) (interface{}, error),
) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(*Server)
		if interceptor == nil {
			return invoke(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return invoke(s, ctx, req)
		}
		return interceptor(ctx, in, info, handler)
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Get",
			Handler: handlerFor(serviceName+"/Get", func() interface{} { return new(GetRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.Get(ctx, req.(*GetRequest))
				}),
		},
		{
			MethodName: "GetAttribute",
			Handler: handlerFor(serviceName+"/GetAttribute", func() interface{} { return new(GetAttributeRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.GetAttribute(ctx, req.(*GetAttributeRequest))
				}),
		},
		{
			MethodName: "Exists",
			Handler: handlerFor(serviceName+"/Exists", func() interface{} { return new(ExistsRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.Exists(ctx, req.(*ExistsRequest))
				}),
		},
		{
			MethodName: "List",
			Handler: handlerFor(serviceName+"/List", func() interface{} { return new(ListRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.List(ctx, req.(*ListRequest))
				}),
		},
		{
			MethodName: "Create",
			Handler: handlerFor(serviceName+"/Create", func() interface{} { return new(CreateRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.Create(ctx, req.(*CreateRequest))
				}),
		},
		{
			MethodName: "Set",
			Handler: handlerFor(serviceName+"/Set", func() interface{} { return new(SetRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.Set(ctx, req.(*SetRequest))
				}),
		},
		{
			MethodName: "Remove",
			Handler: handlerFor(serviceName+"/Remove", func() interface{} { return new(RemoveRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.Remove(ctx, req.(*RemoveRequest))
				}),
		},
		{
			MethodName: "SetAttribute",
			Handler: handlerFor(serviceName+"/SetAttribute", func() interface{} { return new(SetAttributeRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.SetAttribute(ctx, req.(*SetAttributeRequest))
				}),
		},
		{
			MethodName: "RemoveAttribute",
			Handler: handlerFor(serviceName+"/RemoveAttribute", func() interface{} { return new(RemoveAttributeRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.RemoveAttribute(ctx, req.(*RemoveAttributeRequest))
				}),
		},
		{
			MethodName: "Copy",
			Handler: handlerFor(serviceName+"/Copy", func() interface{} { return new(CopyRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.Copy(ctx, req.(*CopyRequest))
				}),
		},
		{
			MethodName: "Move",
			Handler: handlerFor(serviceName+"/Move", func() interface{} { return new(MoveRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.Move(ctx, req.(*MoveRequest))
				}),
		},
		{
			MethodName: "Link",
			Handler: handlerFor(serviceName+"/Link", func() interface{} { return new(LinkRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.Link(ctx, req.(*LinkRequest))
				}),
		},
		{
			MethodName: "Lock",
			Handler: handlerFor(serviceName+"/Lock", func() interface{} { return new(LockRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.Lock(ctx, req.(*LockRequest))
				}),
		},
		{
			MethodName: "Unlock",
			Handler: handlerFor(serviceName+"/Unlock", func() interface{} { return new(UnlockRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.Unlock(ctx, req.(*UnlockRequest))
				}),
		},
		{
			MethodName: "StartTransaction",
			Handler: handlerFor(serviceName+"/StartTransaction", func() interface{} { return new(StartTransactionRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.StartTransaction(ctx, req.(*StartTransactionRequest))
				}),
		},
		{
			MethodName: "PingTransaction",
			Handler: handlerFor(serviceName+"/PingTransaction", func() interface{} { return new(TransactionIDRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.PingTransaction(ctx, req.(*TransactionIDRequest))
				}),
		},
		{
			MethodName: "PrepareCommitTransaction",
			Handler: handlerFor(serviceName+"/PrepareCommitTransaction", func() interface{} { return new(TransactionIDRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.PrepareCommitTransaction(ctx, req.(*TransactionIDRequest))
				}),
		},
		{
			MethodName: "CommitTransaction",
			Handler: handlerFor(serviceName+"/CommitTransaction", func() interface{} { return new(CommitTransactionRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.CommitTransaction(ctx, req.(*CommitTransactionRequest))
				}),
		},
		{
			MethodName: "AbortTransaction",
			Handler: handlerFor(serviceName+"/AbortTransaction", func() interface{} { return new(TransactionIDRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.AbortTransaction(ctx, req.(*TransactionIDRequest))
				}),
		},
		{
			MethodName: "SubmitOperation",
			Handler: handlerFor(serviceName+"/SubmitOperation", func() interface{} { return new(SubmitOperationRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.SubmitOperation(ctx, req.(*SubmitOperationRequest))
				}),
		},
		{
			MethodName: "AbortOperation",
			Handler: handlerFor(serviceName+"/AbortOperation", func() interface{} { return new(OperationIDRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.AbortOperation(ctx, req.(*OperationIDRequest))
				}),
		},
		{
			MethodName: "GetOperation",
			Handler: handlerFor(serviceName+"/GetOperation", func() interface{} { return new(GetOperationRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.GetOperation(ctx, req.(*GetOperationRequest))
				}),
		},
		{
			MethodName: "ListOperations",
			Handler: handlerFor(serviceName+"/ListOperations", func() interface{} { return new(ListOperationsRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.ListOperations(ctx, req.(*ListOperationsRequest))
				}),
		},
		{
			MethodName: "GenerateJoinToken",
			Handler: handlerFor(serviceName+"/GenerateJoinToken", func() interface{} { return new(GenerateJoinTokenRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.GenerateJoinToken(ctx, req.(*GenerateJoinTokenRequest))
				}),
		},
		{
			MethodName: "JoinCluster",
			Handler: handlerFor(serviceName+"/JoinCluster", func() interface{} { return new(JoinClusterRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.JoinCluster(ctx, req.(*JoinClusterRequest))
				}),
		},
		{
			MethodName: "GetClusterInfo",
			Handler: handlerFor(serviceName+"/GetClusterInfo", func() interface{} { return new(GetClusterInfoRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.GetClusterInfo(ctx, req.(*GetClusterInfoRequest))
				}),
		},
		{
			MethodName: "RequestCertificate",
			Handler: handlerFor(serviceName+"/RequestCertificate", func() interface{} { return new(RequestCertificateRequest) },
				func(s *Server, ctx context.Context, req interface{}) (interface{}, error) {
					return s.RequestCertificate(ctx, req.(*RequestCertificateRequest))
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cellar/api.proto",
}
