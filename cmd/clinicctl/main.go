package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/app"
	"github.com/hackgods/clinic-appointment-triage/internal/appointment"
	"github.com/hackgods/clinic-appointment-triage/internal/config"
	"github.com/hackgods/clinic-appointment-triage/internal/db"
	"github.com/hackgods/clinic-appointment-triage/internal/logger"
	"github.com/hackgods/clinic-appointment-triage/internal/seed"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Operational commands for the clinic scheduling backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(sweepCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "clinicctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func setup(service string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, service)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup("clinicctl-migrate")
			if err != nil {
				return err
			}
			if cfg.StorageDriver != config.DriverPostgres {
				return fmt.Errorf("migrate needs STORAGE_DRIVER=%s", config.DriverPostgres)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
			cancel()
			if err != nil {
				return fmt.Errorf("postgres connection: %w", err)
			}
			defer pool.Close()

			applied, err := db.Migrate(cmd.Context(), pool)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			log.Info("migrations applied", zap.Ints("versions", applied))
			fmt.Printf("Applied %d migration(s).\n", len(applied))
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	var opts seed.Options
	var rngSeed uint64

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Book fake appointments and submit fake emergency reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup("clinicctl-seed")
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			opts.From = cfg.ClinicNow()
			res, err := seed.New(a.Appointments, a.Emergencies, rngSeed, log).Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			fmt.Printf("Booked %d appointments (%d approved, %d slot collisions) for %d patients.\n",
				res.Booked, res.Approved, res.Collisions, len(res.Patients))
			fmt.Printf("Submitted %d emergency reports (%d triaged).\n", res.Emergencies, res.Triaged)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Patients, "patients", 200, "number of patient ids to generate")
	cmd.Flags().IntVar(&opts.Appointments, "appointments", 500, "booking attempts")
	cmd.Flags().IntVar(&opts.Emergencies, "emergencies", 50, "emergency reports to submit")
	cmd.Flags().IntVar(&opts.Days, "days", 7, "days ahead to spread bookings over")
	cmd.Flags().Uint64Var(&rngSeed, "seed", 0, "random seed, 0 picks one from the clock")
	return cmd
}

func sweepCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the end-of-day sweep once",
		Long: "Cancels approved appointments that were not completed by the cutoff hour.\n" +
			"--at takes an RFC 3339 timestamp and defaults to now in the clinic's time zone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup("clinicctl-sweep")
			if err != nil {
				return err
			}

			now := cfg.ClinicNow()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				now = t.In(cfg.Location())
			}

			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Sweeper.Run(cmd.Context(), now)
			if err != nil {
				return err
			}
			fmt.Printf("Sweep %s: considered=%d cancelled=%d skipped=%d failed=%d\n",
				res.Date.Format(appointment.DateLayout), res.Considered, res.Cancelled, res.Skipped, res.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "sweep as if it were this time (RFC 3339)")
	return cmd
}
