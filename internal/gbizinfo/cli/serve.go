package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/gbizinfo/internal/gbizinfo/auth"
	"github.com/gartstein/gbizinfo/internal/gbizinfo/handlers"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over gRPC and REST",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().Int("grpc-port", 0, "gRPC listen port (overrides GRPC_PORT)")
	cmd.Flags().Int("http-port", 0, "REST listen port (overrides HTTP_PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	grpcPort, httpPort := a.cfg.GRPCPort, a.cfg.HTTPPort
	if cmd.Flags().Changed("grpc-port") {
		grpcPort, _ = cmd.Flags().GetInt("grpc-port")
	}
	if cmd.Flags().Changed("http-port") {
		httpPort, _ = cmd.Flags().GetInt("http-port")
	}

	producer, closeProducer := a.producer()
	defer closeProducer()

	registry, err := a.registry(producer)
	if err != nil {
		return fmt.Errorf("build tool registry: %w", err)
	}

	var opts []grpc.ServerOption
	if a.cfg.JWTSecret != "" {
		opts = append(opts, grpc.UnaryInterceptor(auth.NewAuthInterceptor(a.cfg.JWTSecret).Unary()))
	} else {
		a.logger.Warn("JWT_SECRET is not set, tool routes are open")
	}

	server := handlers.NewServer(grpcPort, httpPort, a.logger, opts...)
	server.RegisterGRPCHandler(handlers.NewToolHandler(registry, a.logger))
	if err := server.RegisterHTTPHandler(handlers.NewHTTPHandler(registry, a.logger), a.cfg.JWTSecret); err != nil {
		return fmt.Errorf("register HTTP handler: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			server.Stop()
			return fmt.Errorf("start servers: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	server.Stop()
	if err := <-errCh; err != nil {
		a.logger.Warn("server exited with error", zap.Error(err))
	}
	a.logger.Info("Servers stopped properly")
	return nil
}
