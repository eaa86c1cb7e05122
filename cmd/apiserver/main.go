package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/chantierhq/chantier/internal/apiserver/acl"
	"github.com/chantierhq/chantier/internal/apiserver/database"
	"github.com/chantierhq/chantier/internal/apiserver/handler"
	"github.com/chantierhq/chantier/internal/apiserver/realtime"
	"github.com/chantierhq/chantier/internal/auth/jwt"
	"github.com/chantierhq/chantier/internal/common/config"
	"github.com/chantierhq/chantier/pkg/logger"
	"github.com/chantierhq/chantier/pkg/version"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of apiserver",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("apiserver version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "apiserver",
		Short: "Chantier API Server",
		Long:  `Chantier API Server provides the REST and websocket endpoints for project collaboration`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "configs/apiserver.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

// ensureSuperAdmin seeds the configured admin account on first boot.
func ensureSuperAdmin(ctx context.Context, db database.Database, cfg *config.SuperAdminConfig, zlog *zap.Logger) error {
	if cfg.Username == "" || cfg.Password == "" {
		zlog.Warn("super admin not configured, skipping seed")
		return nil
	}

	if _, err := db.GetUserByUsername(ctx, cfg.Username); err == nil {
		return nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := &database.User{
		Username: cfg.Username,
		Email:    cfg.Email,
		Password: string(hashed),
		Role:     database.RoleAdmin,
	}
	if err := db.CreateUser(ctx, user); err != nil {
		return err
	}
	zlog.Info("seeded super admin account", zap.String("username", cfg.Username))
	return nil
}

func run() {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zlog, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("starting apiserver", zap.String("version", version.Get()))

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ensureSuperAdmin(ctx, db, &cfg.SuperAdmin, zlog); err != nil {
		zlog.Fatal("failed to seed super admin", zap.Error(err))
	}

	jwtService, err := jwt.NewService(jwt.Config{
		SecretKey: cfg.JWT.SecretKey,
		Duration:  cfg.JWT.Duration,
	})
	if err != nil {
		zlog.Fatal("failed to initialize jwt service", zap.Error(err))
	}

	hub := realtime.NewHub(zlog)
	go hub.Run(ctx)

	evaluator := acl.NewEvaluator(db)
	h := handler.NewHandler(db, jwtService, evaluator, hub, zlog)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		zlog.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("forced shutdown", zap.Error(err))
	}
	hub.CloseAll()
	zlog.Info("server stopped")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
