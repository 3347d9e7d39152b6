package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"github.com/ASTXRTYS/picket-mvp/internal/platform/auth"
	"github.com/ASTXRTYS/picket-mvp/internal/platform/db"
	"github.com/ASTXRTYS/picket-mvp/internal/platform/mail"
	"github.com/ASTXRTYS/picket-mvp/internal/profile"
	"github.com/ASTXRTYS/picket-mvp/internal/session"
	"github.com/ASTXRTYS/picket-mvp/internal/site"
)

func main() {
	// .env is dev convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if mode != "dev" && mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwt_secret is required (config or PICKET_JWT_SECRET)")
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	var mailer mail.Mailer
	switch cfg.Mail.Provider {
	case "sendgrid":
		mailer = mail.NewSendgridMailer(cfg.Mail.SendgridKey, cfg.Mail.FromName, cfg.Mail.FromAddress)
	default:
		mailer = mail.NewConsoleMailer(cfg.Mail.FromName, cfg.Mail.FromAddress)
	}
	log.Printf("[INFO] mail provider: %T", mailer)

	profileSvc := profile.NewService(conn)
	siteSvc := site.NewService(conn)
	sessionSvc := session.NewService(conn, siteSvc)

	authSvc := auth.NewService(conn, auth.Config{
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		TokenTTL:  time.Duration(cfg.Auth.TokenTTLHours) * time.Hour,
		LinkTTL:   time.Duration(cfg.Auth.LinkTTLMinutes) * time.Minute,
		BaseURL:   cfg.Auth.BaseURL,
	}, mailer, func(ctx context.Context, email string) (string, string, error) {
		p, err := profileSvc.EnsureProfile(ctx, email)
		if err != nil {
			return "", "", err
		}
		return p.ProfileID, p.Role, nil
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		origin := cfg.Server.AllowOrigin
		if origin == "" {
			origin = "http://localhost:3000"
		}
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{origin},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// /api/v1
	api := r.Group("/api/v1")
	auth.RegisterRoutes(api, authSvc)

	authed := api.Group("", auth.RequireAuth([]byte(cfg.Auth.JWTSecret)))
	profile.RegisterRoutes(authed, profileSvc)
	site.RegisterRoutes(authed, siteSvc)
	session.RegisterRoutes(authed, sessionSvc)

	admin := authed.Group("", auth.RequireRole(profile.RoleAdmin))
	session.RegisterCoordinatorRoutes(admin, sessionSvc)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		log.Printf("[INFO] listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
