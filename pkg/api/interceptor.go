package api

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// AuthInterceptor creates a gRPC unary interceptor that requires a verified
// client certificate on every call except the bootstrap RPCs a new node
// must be able to reach before it has one (RequestCertificate, JoinCluster).
func AuthInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if isBootstrapMethod(info.FullMethod) {
			return handler(ctx, req)
		}

		p, ok := peer.FromContext(ctx)
		if !ok || p.AuthInfo == nil {
			return nil, status.Errorf(codes.Unauthenticated, "missing client certificate")
		}

		return handler(ctx, req)
	}
}

func isBootstrapMethod(method string) bool {
	methodName := methodNameOf(method)
	switch methodName {
	case "RequestCertificate", "JoinCluster":
		return true
	}
	return false
}

// ReadOnlyInterceptor creates a gRPC unary interceptor that only allows
// read-only operations. Used on a Unix socket listener so a local CLI
// without a client certificate can still inspect cluster state.
func ReadOnlyInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if !isReadOnlyMethod(info.FullMethod) {
			return nil, status.Errorf(
				codes.PermissionDenied,
				"write operations not allowed on the Unix socket - use a TCP connection with mTLS",
			)
		}
		return handler(ctx, req)
	}
}

func methodNameOf(fullMethod string) string {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1]
}

// isReadOnlyMethod reports whether a gRPC method only reads cluster state.
func isReadOnlyMethod(method string) bool {
	methodName := methodNameOf(method)

	readOnlyPrefixes := []string{
		"Get",
		"List",
		"Exists",
	}
	for _, prefix := range readOnlyPrefixes {
		if strings.HasPrefix(methodName, prefix) {
			return true
		}
	}

	switch methodName {
	case "GetClusterInfo":
		return true
	}

	return false
}
