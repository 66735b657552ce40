// Package handlers serves the tool registry over gRPC, REST and MCP, mapping
// domain errors to each transport's error shape.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gartstein/gbizinfo/internal/gbizinfo/auth"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const shutdownTimeout = 5 * time.Second

// Server runs the gRPC ToolService and the REST routes side by side.
type Server struct {
	grpcServer   *grpc.Server
	httpServer   *http.Server
	logger       *zap.Logger
	grpcEndpoint string
	httpEndpoint string

	mu       sync.Mutex
	grpcAddr net.Addr
	httpAddr net.Addr
}

// NewServer constructs a Server listening on the given ports. Port 0 picks a
// free port; see GRPCAddr and HTTPAddr.
func NewServer(grpcPort, httpPort int, logger *zap.Logger, grpcOpts ...grpc.ServerOption) *Server {
	return &Server{
		grpcServer:   grpc.NewServer(grpcOpts...),
		httpServer:   &http.Server{ReadHeaderTimeout: 10 * time.Second},
		logger:       logger.Named("server"),
		grpcEndpoint: fmt.Sprintf(":%d", grpcPort),
		httpEndpoint: fmt.Sprintf(":%d", httpPort),
	}
}

// RegisterGRPCHandler registers the ToolService implementation.
func (s *Server) RegisterGRPCHandler(h ToolServiceServer) {
	s.grpcServer.RegisterService(&ToolServiceDesc, h)
}

// RegisterHTTPHandler mounts the REST routes on a gateway mux. When jwtSecret
// is empty the routes are served without authentication.
func (s *Server) RegisterHTTPHandler(h *HTTPHandler, jwtSecret string) error {
	mux := runtime.NewServeMux()
	if err := h.Register(mux); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	var handler http.Handler = mux
	if jwtSecret != "" {
		handler = auth.HTTPMiddleware(mux, jwtSecret)
	}
	s.httpServer.Handler = handler
	s.httpServer.Addr = s.httpEndpoint
	return nil
}

// Start binds both listeners, then serves until Stop is called or either
// server fails. Bind failures are returned before anything is served.
func (s *Server) Start() error {
	grpcLis, err := net.Listen("tcp", s.grpcEndpoint)
	if err != nil {
		return fmt.Errorf("gRPC listen error: %w", err)
	}
	httpLis, err := net.Listen("tcp", s.httpEndpoint)
	if err != nil {
		_ = grpcLis.Close()
		return fmt.Errorf("HTTP listen error: %w", err)
	}

	s.mu.Lock()
	s.grpcAddr, s.httpAddr = grpcLis.Addr(), httpLis.Addr()
	s.mu.Unlock()

	errChan := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.logger.Info("Starting gRPC server", zap.Stringer("addr", grpcLis.Addr()))
		if err := s.grpcServer.Serve(grpcLis); err != nil {
			errChan <- fmt.Errorf("gRPC serve error: %w", err)
		}
	}()

	go func() {
		defer wg.Done()
		s.logger.Info("Starting HTTP server", zap.Stringer("addr", httpLis.Addr()))
		if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	go func() {
		wg.Wait()
		close(errChan)
	}()

	if err, ok := <-errChan; ok {
		return err
	}
	return nil
}

// GRPCAddr is the bound gRPC address, or nil before Start.
func (s *Server) GRPCAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grpcAddr
}

// HTTPAddr is the bound REST address, or nil before Start.
func (s *Server) HTTPAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpAddr
}

// Stop drains in-flight calls on both servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.grpcServer.GracefulStop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.logger.Info("Servers stopped")
}
