package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/ogurasousui/resource-allocation/internal/adapters/grpc/handler"
)

// Services はサーバーに登録する gRPC サービス群です。nil のサービスは登録しません。
type Services struct {
	Employees   handler.EmployeeServiceServer
	Projects    handler.ProjectServiceServer
	Assignments handler.AssignmentServiceServer
	Dashboards  handler.DashboardServiceServer
	Skills      handler.SkillServiceServer
}

// RequestRecorder は gRPC リクエスト数を記録します。
type RequestRecorder interface {
	IncRequest(method, code string)
}

// Server は gRPC サーバーのライフサイクルを管理します。
type Server struct {
	listenAddr string
	grpcServer *grpc.Server
	health     *health.Server
	logger     *slog.Logger
}

// New は指定されたアドレスで待ち受ける gRPC サーバーを構築します。
func New(listenAddr string, services Services, logger *slog.Logger, recorder RequestRecorder, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(unaryInterceptor(logger, recorder))}, opts...)
	srv := grpc.NewServer(opts...)

	if services.Employees != nil {
		handler.RegisterEmployeeServiceServer(srv, services.Employees)
	}
	if services.Projects != nil {
		handler.RegisterProjectServiceServer(srv, services.Projects)
	}
	if services.Assignments != nil {
		handler.RegisterAssignmentServiceServer(srv, services.Assignments)
	}
	if services.Dashboards != nil {
		handler.RegisterDashboardServiceServer(srv, services.Dashboards)
	}
	if services.Skills != nil {
		handler.RegisterSkillServiceServer(srv, services.Skills)
	}

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	for name := range srv.GetServiceInfo() {
		hs.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &Server{
		listenAddr: listenAddr,
		grpcServer: srv,
		health:     hs,
		logger:     logger,
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると GracefulStop します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve は与えられたリスナーでサーバーを起動します。
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	s.logger.Info("gRPC server listening", slog.String("addr", lis.Addr().String()))

	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	return nil
}

// GracefulStop はヘルスチェックを NOT_SERVING にしたうえでサーバーを安全に停止します。
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

func unaryInterceptor(logger *slog.Logger, recorder RequestRecorder) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		code := status.Code(err)

		if recorder != nil {
			recorder.IncRequest(info.FullMethod, code.String())
		}

		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		logger.LogAttrs(ctx, level, "grpc request",
			slog.String("method", info.FullMethod),
			slog.String("code", code.String()),
			slog.Duration("latency", time.Since(start)),
		)

		return resp, err
	}
}
