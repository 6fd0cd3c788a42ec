package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/reserve/internal/config"
	"github.com/clinic/reserve/internal/domain/booking"
	"github.com/clinic/reserve/internal/domain/identity"
	"github.com/clinic/reserve/internal/platform/auth"
	"github.com/clinic/reserve/internal/platform/events"
	"github.com/clinic/reserve/internal/platform/middleware"
	"github.com/clinic/reserve/internal/platform/notify"
	"github.com/clinic/reserve/internal/platform/store"
	"github.com/clinic/reserve/pkg/model"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "reserve-server",
		Short: "Clinic reservation API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the reservation API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Data store
	st := store.New(cfg.DataFile)
	logger.Info().Str("file", cfg.DataFile).Msg("using data file")

	// Mail
	var sender notify.Sender
	if cfg.SMTPConfigured() {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPass,
			FromAddress: cfg.FromAddress,
		})
	} else {
		logger.Warn().Msg("SMTP not configured; notification mails will be logged only")
		sender = notify.NewLogSender(logger)
	}

	// Services
	identitySvc := identity.NewService(st, sender, logger)
	notifier := notify.NewNotifier(sender, identitySvc, cfg.SystemURL, logger)
	hub := events.NewHub(logger)
	holidaySource := booking.NewHTTPHolidaySource(cfg.HolidayAPIURL)
	bookingSvc := booking.NewService(st, hub, notifier, logger)
	blockedSlotSvc := booking.NewBlockedSlotService(st, hub, notifier, holidaySource, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	// Realtime events; unauthenticated like the rest of the public surface.
	events.NewHandler(hub).RegisterRoutes(e.Group(""))

	identityHandler := identity.NewHandler(identitySvc)
	bookingHandler := booking.NewHandler(bookingSvc, blockedSlotSvc)

	public := e.Group("/api")
	identityHandler.RegisterPublicRoutes(public)

	api := e.Group("/api", auth.Authenticate(identitySvc))
	identityHandler.RegisterRoutes(api)
	bookingHandler.RegisterRoutes(public, api)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func seedCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the data file with demo accounts and reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "seed even if the data file already has records")
	return cmd
}

func runSeed(force bool) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st := store.New(cfg.DataFile)
	ctx := context.Background()

	gofakeit.Seed(time.Now().UnixNano())

	return st.Update(ctx, func(snap *store.Snapshot) error {
		if !force && (len(snap.Users) > 0 || len(snap.Appointments) > 0) {
			return fmt.Errorf("%s is not empty; use --force to seed anyway", cfg.DataFile)
		}

		snap.Users = append(snap.Users, model.User{
			UserID:   "admin",
			Password: "admin",
			Name:     "Administrator",
			Role:     model.RoleAdmin,
		})
		for i := 0; i < 5; i++ {
			snap.Users = append(snap.Users, model.User{
				UserID:     fmt.Sprintf("staff%d", i+1),
				Password:   "password",
				Name:       gofakeit.Name(),
				Department: gofakeit.RandomString([]string{"Internal Medicine", "Rehabilitation", "Nursing"}),
				Email:      gofakeit.Email(),
				Role:       model.RoleGeneral,
			})
		}

		today := time.Now()
		for i := 0; i < 20; i++ {
			date := today.AddDate(0, 0, gofakeit.Number(0, 13)).Format("2006-01-02")
			switch gofakeit.Number(0, 2) {
			case 0:
				snap.InsertAppointment(model.Appointment{
					ReservationType: model.ReservationOutpatient,
					Date:            date,
					Time:            fmt.Sprintf("%02d:%02d", gofakeit.Number(9, 16), gofakeit.Number(0, 1)*30),
					PatientID:       fmt.Sprintf("%d", gofakeit.Number(1000, 9999)),
					PatientName:     gofakeit.Name(),
					Consultation:    model.Consultation{gofakeit.RandomString([]string{"checkup", "follow-up", "consultation"})},
					LastUpdatedBy:   "seed",
				})
			case 1:
				start := gofakeit.Number(9, 14)
				snap.InsertAppointment(model.Appointment{
					ReservationType: model.ReservationVisit,
					Date:            date,
					StartTimeRange:  fmt.Sprintf("%02d:00", start),
					EndTimeRange:    fmt.Sprintf("%02d:00", start+2),
					FacilityName:    gofakeit.Company(),
					LastUpdatedBy:   "seed",
				})
			default:
				start := gofakeit.Number(13, 15)
				snap.InsertAppointment(model.Appointment{
					ReservationType: model.ReservationRehab,
					Date:            date,
					StartTimeRange:  fmt.Sprintf("%02d:00", start),
					EndTimeRange:    fmt.Sprintf("%02d:30", start),
					LastUpdatedBy:   "seed",
				})
			}
		}

		snap.InsertBlockedSlot(model.BlockedSlot{
			Date:          today.AddDate(0, 0, 20).Format("2006-01-02"),
			Reason:        "Facility maintenance",
			LastUpdatedBy: "seed",
		})

		logger.Info().
			Int("users", len(snap.Users)).
			Int("appointments", len(snap.Appointments)).
			Int("blockedSlots", len(snap.BlockedSlots)).
			Msg("seed complete")
		return nil
	})
}
