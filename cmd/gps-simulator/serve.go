package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bucknalla/go-route-simulator/sink"
	"github.com/Bucknalla/go-route-simulator/web/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the simulator behind an HTTP and websocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := loadOptions(v, cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, o)
		},
	}

	cmd.Flags().String("addr", ":8080", "HTTP listen address")
	cmd.Flags().String("static-dir", "static", "Directory of static web assets")
	addSimulationFlags(cmd)
	return cmd
}

// runServe serves the web API until ctx is done or the listener fails.
func runServe(ctx context.Context, o options) error {
	lg := o.logger()

	router, places, err := o.routeSources(lg)
	if err != nil {
		return err
	}
	// NMEA only leaves the server through a serial port.
	out, err := o.sinks(nil, lg)
	if err != nil {
		return err
	}

	opts := server.Options{
		Config:    o.Simulation,
		Router:    router,
		Places:    places,
		StaticDir: o.StaticDir,
		Logger:    lg,
	}
	if len(out) > 0 {
		opts.Sink = out
	}
	ws, err := server.New(opts)
	if err != nil {
		out.Close()
		return err
	}
	srv := ws.NewHTTPServer(o.Addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Infof("Starting GPS Simulator Web Server on %s", o.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		lg.Info("shutting down web server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if cerr := ws.Close(); cerr != nil {
			lg.Errorf("closing outputs: %v", cerr)
		}
		return err
	})
	return g.Wait()
}

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports available for NMEA output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := sink.ListSerialPorts()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}
