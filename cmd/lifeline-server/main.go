package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lifeline/lifeline/internal/config"
	"github.com/lifeline/lifeline/internal/domain/appointments"
	"github.com/lifeline/lifeline/internal/domain/billing"
	"github.com/lifeline/lifeline/internal/domain/insights"
	"github.com/lifeline/lifeline/internal/domain/ledger"
	"github.com/lifeline/lifeline/internal/domain/registry"
	"github.com/lifeline/lifeline/internal/domain/ward"
	"github.com/lifeline/lifeline/internal/platform/auth"
	"github.com/lifeline/lifeline/internal/platform/flatfile"
	"github.com/lifeline/lifeline/internal/platform/middleware"
)

// repoCredentials adapts the registry repositories to the
// auth.CredentialSource interface, avoiding circular imports between the
// auth and registry packages.
type repoCredentials struct {
	patients registry.PatientRepository
	doctors  registry.DoctorRepository
}

func (c *repoCredentials) PatientKey(id string) (string, bool) {
	p, err := c.patients.GetByID(context.Background(), id)
	if err != nil {
		return "", false
	}
	return p.PasswordKey, true
}

func (c *repoCredentials) DoctorExists(id string) bool {
	_, err := c.doctors.GetByID(context.Background(), id)
	return err == nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "lifeline-server",
		Short: "Lifeline hospital desk API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(billCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// registerCmd registers a patient or doctor from the command line, for
// seeding a fresh data directory without going through the HTTP API.
func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register patients and doctors",
	}

	patientCmd := &cobra.Command{
		Use:   "patient",
		Short: "Register a new patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			age, _ := cmd.Flags().GetInt("age")
			gender, _ := cmd.Flags().GetString("gender")
			blood, _ := cmd.Flags().GetString("blood-group")
			contact, _ := cmd.Flags().GetString("contact")
			address, _ := cmd.Flags().GetString("address")
			diseases, _ := cmd.Flags().GetString("diseases")

			_, _, _, regSvc, _, _, err := buildServices()
			if err != nil {
				return err
			}
			reg, err := regSvc.RegisterPatient(context.Background(), registry.NewPatientInput{
				Name:       name,
				Age:        age,
				Gender:     gender,
				BloodGroup: blood,
				Contact:    contact,
				Address:    address,
				Diseases:   splitList(diseases),
			})
			if err != nil {
				return err
			}
			fmt.Printf("Registered patient %s (%s)\n", reg.Patient.ID, reg.Patient.Name)
			fmt.Printf("Password key: %s\n", reg.PasswordKey)
			return nil
		},
	}
	patientCmd.Flags().String("name", "", "Full name")
	patientCmd.Flags().Int("age", 0, "Age in years")
	patientCmd.Flags().String("gender", "", "Gender")
	patientCmd.Flags().String("blood-group", "", "Blood group")
	patientCmd.Flags().String("contact", "", "Contact number (10 digits)")
	patientCmd.Flags().String("address", "", "Home address")
	patientCmd.Flags().String("diseases", "", "Comma-separated disease list")
	cmd.AddCommand(patientCmd)

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Register a new doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			age, _ := cmd.Flags().GetInt("age")
			gender, _ := cmd.Flags().GetString("gender")
			spec, _ := cmd.Flags().GetString("specialization")
			qual, _ := cmd.Flags().GetString("qualification")
			exp, _ := cmd.Flags().GetInt("experience")
			contact, _ := cmd.Flags().GetString("contact")

			_, _, _, regSvc, _, _, err := buildServices()
			if err != nil {
				return err
			}
			doc, err := regSvc.RegisterDoctor(context.Background(), registry.NewDoctorInput{
				Name:            name,
				Age:             age,
				Gender:          gender,
				Specialization:  spec,
				Qualification:   qual,
				ExperienceYears: exp,
				Contact:         contact,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Registered doctor %s (%s, %s)\n", doc.ID, doc.Name, doc.Specialization)
			return nil
		},
	}
	doctorCmd.Flags().String("name", "", "Full name")
	doctorCmd.Flags().Int("age", 0, "Age in years")
	doctorCmd.Flags().String("gender", "", "Gender")
	doctorCmd.Flags().String("specialization", "", "Specialization")
	doctorCmd.Flags().String("qualification", "", "Qualification")
	doctorCmd.Flags().Int("experience", 0, "Years of experience")
	doctorCmd.Flags().String("contact", "", "Contact number (10 digits)")
	cmd.AddCommand(doctorCmd)

	return cmd
}

// billCmd prints the outstanding balance for a patient, replayed from the
// ledger the same way the HTTP statement endpoint does it.
func billCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bill <patient-id>",
		Short: "Show a patient's outstanding balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, _, _, billSvc, _, err := buildServices()
			if err != nil {
				return err
			}
			st := billSvc.ComputeBalance(args[0])
			for _, line := range st.Breakdown {
				fmt.Println(line)
			}
			fmt.Printf("Total: Rs. %d\n", st.Total)
			if st.Admitted {
				fmt.Printf("Currently admitted in bed %s\n", st.BedID)
			}
			return nil
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// buildServices loads config and wires the flat-file stores into the
// domain services shared by the server and the CLI commands.
func buildServices() (*config.Config, *ledger.Store, *ward.Beds, *registry.Service, *billing.Service, *appointments.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, nil, nil, err
	}
	files, err := flatfile.NewStore(cfg.DataDir)
	if err != nil {
		return nil, nil, nil, nil, nil, nil, err
	}
	led := ledger.NewStore(files)
	patientRepo := registry.NewPatientRepo(files)
	doctorRepo := registry.NewDoctorRepo(files)
	beds := ward.NewBeds(cfg.BedCount, led)

	regSvc := registry.NewService(patientRepo, doctorRepo, led, cfg.RegistrationFee)
	billSvc := billing.NewService(led, beds, cfg.BedFee)
	apptSvc := appointments.NewService(patientRepo, doctorRepo, led)
	return cfg, led, beds, regSvc, billSvc, apptSvc, nil
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Flat-file storage
	files, err := flatfile.NewStore(cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("failed to open data directory")
	}
	logger.Info().Str("dir", cfg.DataDir).Msg("data directory ready")

	led := ledger.NewStore(files)
	patientRepo := registry.NewPatientRepo(files)
	doctorRepo := registry.NewDoctorRepo(files)

	// Ward state lives for the process lifetime: the bed map and the
	// waiting queue both start empty on restart. Bed transitions are
	// still logged to the occupant's ledger, so the history survives
	// even though the live map does not.
	beds := ward.NewBeds(cfg.BedCount, led)
	queue := ward.NewQueue()

	regSvc := registry.NewService(patientRepo, doctorRepo, led, cfg.RegistrationFee)
	billSvc := billing.NewService(led, beds, cfg.BedFee)
	apptSvc := appointments.NewService(patientRepo, doctorRepo, led)
	insightSvc := insights.NewService(patientRepo, led)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	signingKey := []byte(cfg.SessionKey)

	// API groups. Login and the health check stay outside the auth
	// middleware so a token can be obtained in the first place.
	apiV1 := e.Group("/api/v1")

	// Auth middleware
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware(signingKey))
	} else {
		apiV1.Use(auth.Middleware(signingKey))
	}

	// Audit middleware
	apiV1.Use(middleware.Audit(logger))

	// Rate limiting middleware
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	login := &auth.Login{
		AdminUser:     cfg.AdminUser,
		AdminPassword: cfg.AdminPassword,
		SigningKey:    signingKey,
		Credentials:   &repoCredentials{patients: patientRepo, doctors: doctorRepo},
	}
	authGroup := e.Group("")
	auth.NewLoginHandler(login).RegisterRoutes(authGroup)

	// -- Register Domain Handlers --

	registry.NewHandler(regSvc).RegisterRoutes(apiV1)
	appointments.NewHandler(apptSvc).RegisterRoutes(apiV1)
	ward.NewHandler(beds, queue).RegisterRoutes(apiV1)
	billing.NewHandler(billSvc).RegisterRoutes(apiV1)
	insights.NewHandler(insightSvc).RegisterRoutes(apiV1)

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
