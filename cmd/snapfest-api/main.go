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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/snapfest/backend/internal/auth"
	"github.com/snapfest/backend/internal/catalog"
	"github.com/snapfest/backend/internal/config"
	"github.com/snapfest/backend/internal/contest"
	"github.com/snapfest/backend/internal/control"
	"github.com/snapfest/backend/internal/housekeeping"
	"github.com/snapfest/backend/internal/ingest"
	"github.com/snapfest/backend/internal/logging"
	"github.com/snapfest/backend/internal/server"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "snapfest-api",
		Short: "Snapfest photo contest backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newAdminTokenCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Int("catalog-capacity", defaults.GetInt("catalog.capacity"), "Maximum number of catalog entries")
	cmd.PersistentFlags().Duration("session-timeout", defaults.GetDuration("session.timeout"), "Idle session expiry")
	cmd.PersistentFlags().Duration("sweep-interval", defaults.GetDuration("session.sweep_interval"), "Session expiry sweep interval")
	cmd.PersistentFlags().Duration("inactivity-window", defaults.GetDuration("session.inactivity_window"), "Quiescent duration before a full purge (0 disables)")
	cmd.PersistentFlags().String("media-base-url", defaults.GetString("media.base_url"), "Chat platform content API base URL")
	cmd.PersistentFlags().String("storage-mode", defaults.GetString("storage.mode"), "Media storage strategy (inline, s3)")
	cmd.PersistentFlags().String("admin-signing-secret", "", "Admin token signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "catalog.capacity", "catalog-capacity")
	bindFlag(cmd, "session.timeout", "session-timeout")
	bindFlag(cmd, "session.sweep_interval", "sweep-interval")
	bindFlag(cmd, "session.inactivity_window", "inactivity-window")
	bindFlag(cmd, "media.base_url", "media-base-url")
	bindFlag(cmd, "storage.mode", "storage-mode")
	bindFlag(cmd, "admin.signing_secret", "admin-signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func newAdminTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin-token [subject]",
		Short: "Issue an admin bearer token for the administrative API",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			subject := "admin"
			if len(args) == 1 {
				subject = args[0]
			}
			tokens, err := auth.NewAdminTokens(auth.AdminTokensConfig{
				SigningSecret: []byte(viper.GetString("admin.signing_secret")),
			})
			if err != nil {
				return err
			}
			token, expiresIn, err := tokens.Issue(subject)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires in %ds\n", token, expiresIn)
			return nil
		},
	}
	return cmd
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	flags := control.NewFlags(time.Now)

	submissionCatalog, err := catalog.New(catalog.Config{
		Capacity:      appConfig.CatalogCapacity,
		Clock:         time.Now,
		WinnersLocked: flags.WinnersLocked,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	fetcher, err := ingest.NewHTTPFetcher(ingest.HTTPFetcherConfig{
		BaseURL:     appConfig.MediaBaseURL,
		AccessToken: appConfig.MediaAccessToken,
	})
	if err != nil {
		return err
	}

	var blobStore ingest.BlobStore
	switch appConfig.StorageMode {
	case "s3":
		blobStore, err = ingest.NewObjectStore(ingest.ObjectStoreConfig{
			Endpoint:      appConfig.S3Endpoint,
			AccessKey:     appConfig.S3AccessKey,
			SecretKey:     appConfig.S3SecretKey,
			Bucket:        appConfig.S3Bucket,
			UseSSL:        appConfig.S3UseSSL,
			PublicBaseURL: appConfig.S3PublicURL,
		})
		if err != nil {
			return err
		}
	default:
		blobStore = ingest.NewInlineStore(ingest.InlineStoreConfig{
			MaxDimension: appConfig.MaxImageDimension,
			JPEGQuality:  appConfig.JPEGQuality,
			Logger:       logger,
		})
	}

	pipeline, err := ingest.New(ingest.Config{
		Fetcher: fetcher,
		Store:   blobStore,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	sessions := contest.NewSessions()

	engine, err := contest.NewEngine(contest.EngineConfig{
		Sessions:         sessions,
		Catalog:          submissionCatalog,
		Ingester:         pipeline,
		Flags:            flags,
		Keys:             contest.NewUUIDKeyProvider(),
		Clock:            time.Now,
		NicknameMaxRunes: appConfig.NicknameMaxRunes,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	purger, err := housekeeping.NewPurger(housekeeping.PurgerConfig{
		Quiet: appConfig.InactivityWindow,
		Purge: func() {
			removed := submissionCatalog.Clear()
			sessions.Clear()
			flags.ResetGuestCounter()
			logger.Info("contest state purged", zap.Int("removed", removed))
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	flags.OnActivity(purger.Rearm)
	purger.Start()
	defer purger.Stop()

	sweeper, err := housekeeping.NewSweeper(housekeeping.SweeperConfig{
		Sessions: sessions,
		Interval: appConfig.SweepInterval,
		Timeout:  appConfig.SessionTimeout,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	adminTokens, err := auth.NewAdminTokens(auth.AdminTokensConfig{
		SigningSecret: []byte(appConfig.AdminSigningSecret),
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Engine:      engine,
		Catalog:     submissionCatalog,
		Flags:       flags,
		Sessions:    sessions,
		AdminTokens: adminTokens,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(signalCtx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
