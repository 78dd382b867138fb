package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/Bucknalla/go-route-simulator/gps"
	"github.com/Bucknalla/go-route-simulator/routing"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newPlayCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play one route and exit when it completes",
		Example: `  gps-simulator play --origin 52.3676,4.9041 --destination 52.0907,5.1214
  gps-simulator play --router google --origin "Amsterdam Centraal" --destination Utrecht --serial /dev/ttyUSB0
  gps-simulator play --gpx track.gpx --realistic --speed-multiplier 4 --loop`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := loadOptions(v, cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPlay(ctx, o, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().String("origin", "", `Start of the route, "lat,lon" or a place name`)
	cmd.Flags().String("destination", "", `End of the route, "lat,lon" or a place name`)
	cmd.Flags().String("gpx", "", "Play the tracks or route of this GPX file instead of planning one")
	cmd.Flags().Bool("quiet", false, "Suppress the banner and progress bar (only output NMEA data)")
	addSimulationFlags(cmd)
	return cmd
}

// runPlay plays the configured route once (or until ctx is done when
// looping), writing NMEA to stdout and status to stderr.
func runPlay(ctx context.Context, o options, stdout, stderr io.Writer) error {
	if o.GPX == "" && (o.Origin == "" || o.Destination == "") {
		return errors.New("either --gpx or both --origin and --destination are required")
	}

	lg := o.logger()
	router, places, err := o.routeSources(lg)
	if err != nil {
		return err
	}

	out, err := o.sinks(stdout, lg)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			lg.Errorf("closing outputs: %v", err)
		}
	}()

	completed := make(chan struct{}, 1)
	failed := make(chan error, 1)
	session, err := gps.NewSession(gps.SessionConfig{
		Config: o.Simulation,
		Router: router,
		OnTick: out.Send,
		OnComplete: func() {
			select {
			case completed <- struct{}{}:
			default:
			}
		},
		OnError: func(err error) {
			select {
			case failed <- err:
			default:
			}
		},
		Noise:  gps.NewNoiseGenerator(o.seed()),
		Logger: lg,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	if err := loadRoute(ctx, session, o, places); err != nil {
		return err
	}

	if !o.Quiet {
		printBanner(stderr, o, len(session.Points()))
		sub := session.Bus().Subscribe()
		defer sub.Unsubscribe()
		go showProgress(sub, stderr)
	}

	if err := session.StartPlaying(); err != nil {
		return err
	}

	select {
	case <-completed:
		lg.Info("route complete")
		return nil
	case err := <-failed:
		return fmt.Errorf("simulation failed: %w", err)
	case <-ctx.Done():
		session.StopPlaying()
		lg.Info("simulation interrupted")
		return nil
	}
}

// loadRoute installs the GPX route or plans one between the resolved ends.
func loadRoute(ctx context.Context, session *gps.Session, o options, places routing.Resolver) error {
	if o.GPX != "" {
		points, err := gps.ReadGPXFile(o.GPX)
		if err != nil {
			return err
		}
		session.LoadRoute(points)
		return nil
	}

	origin, err := routing.ResolveLocation(ctx, places, o.Origin)
	if err != nil {
		return fmt.Errorf("origin: %w", err)
	}
	destination, err := routing.ResolveLocation(ctx, places, o.Destination)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if err := session.SetOrigin(ctx, origin); err != nil {
		return err
	}
	return session.SetDestination(ctx, destination)
}

func printBanner(w io.Writer, o options, points int) {
	cfg := o.Simulation
	if o.GPX != "" {
		fmt.Fprintf(w, "Starting GPS replay from: %s\n", o.GPX)
	} else {
		fmt.Fprintf(w, "Starting route simulation: %s -> %s (%s router)\n", o.Origin, o.Destination, o.Router)
	}
	fmt.Fprintf(w, "Route points: %d\n", points)
	if cfg.UseRealisticTiming {
		fmt.Fprintf(w, "Timing: realistic at %.1fx\n", cfg.SpeedMultiplier)
	} else {
		fmt.Fprintf(w, "Timing: one fix every %v\n", cfg.DelayBetweenEmissions)
	}
	if cfg.NoiseLevelInMeters > 0 {
		fmt.Fprintf(w, "Position noise: %.1f meters\n", cfg.NoiseLevelInMeters)
	}
	if o.Serial != "" {
		fmt.Fprintf(w, "NMEA output: %s (%d baud)\n", o.Serial, o.Baud)
	} else {
		fmt.Fprintf(w, "NMEA output: stdout\n")
	}
	fmt.Fprintf(w, "\nPress Ctrl+C to stop\n\n")
}

// showProgress renders SimulationProgress events until sub is closed.
func showProgress(sub *gps.Subscription, w io.Writer) {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("route"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)
	for e := range sub.Events() {
		switch e := e.(type) {
		case gps.SimulationProgress:
			bar.Set(int(math.Round(e.Progress * 100)))
		case gps.SimulationStarted:
			bar.Reset()
		}
	}
	bar.Exit()
}
