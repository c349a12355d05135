package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"runtime/debug"
	"time"

	"github.com/ogurasousui/driver-retention/internal/adapters/grpc/handler"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Server は DriverService を公開する gRPC サーバーです。
type Server struct {
	listenAddr string
	grpcServer *grpc.Server
	health     *health.Server
}

// New は listenAddr で待ち受けるサーバーを構築します。
// DriverService とヘルスチェックを登録し、全 unary 呼び出しにアクセスログとパニック回復を挟みます。
func New(listenAddr string, drivers handler.DriverServiceServer, opts ...grpc.ServerOption) *Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(RecoveryInterceptor, AccessLogInterceptor)}, opts...)
	srv := grpc.NewServer(opts...)
	handler.RegisterDriverServiceServer(srv, drivers)

	hs := health.NewServer()
	hs.SetServingStatus(handler.DriverServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return &Server{
		listenAddr: listenAddr,
		grpcServer: srv,
		health:     hs,
	}
}

// Run はサーバーを起動し、ctx がキャンセルされるとヘルスを NOT_SERVING にしてから GracefulStop します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}
	log.Printf("gRPC server listening on %s", lis.Addr())

	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
	}()

	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}
	return nil
}

// GracefulStop は処理中の呼び出しを待って停止します。
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

// AccessLogInterceptor はメソッド名・ステータスコード・所要時間を 1 行で記録します。
func AccessLogInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := next(ctx, req)
	log.Printf("grpc %s code=%s elapsed=%s", info.FullMethod, status.Code(err), time.Since(start).Round(time.Microsecond))
	return resp, err
}

// RecoveryInterceptor はハンドラーのパニックを Internal エラーに変換します。
func RecoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("grpc %s panic: %v\n%s", info.FullMethod, r, debug.Stack())
			resp, err = nil, status.Errorf(codes.Internal, "internal error")
		}
	}()
	return next(ctx, req)
}
