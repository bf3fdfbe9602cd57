package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kassenwart/finepot-api/internal/config"
	"github.com/kassenwart/finepot-api/internal/database"
	"github.com/kassenwart/finepot-api/internal/handlers"
	authmw "github.com/kassenwart/finepot-api/internal/middleware"
	"github.com/kassenwart/finepot-api/internal/services"
	"github.com/kassenwart/finepot-api/internal/sse"
	"github.com/kassenwart/finepot-api/pkg/logging"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	userService := services.NewUserService(db)
	tokenService := services.NewTokenService(db)
	teamService := services.NewTeamService(db)
	ruleService := services.NewRuleService(db)
	ledgerService := services.NewLedgerService(db)
	disputeService := services.NewDisputeService(db, ledgerService)
	activityService := services.NewActivityService(db)
	emailService := services.NewEmailService(cfg.SMTP)

	hub := sse.NewHub()
	go hub.Run()

	authHandler := handlers.NewAuthHandler(userService, tokenService, jwtService)
	userHandler := handlers.NewUserHandler(userService)
	teamHandler := handlers.NewTeamHandler(teamService, userService, emailService, cfg.BaseURL)
	ruleHandler := handlers.NewRuleHandler(teamService, ruleService)
	fineHandler := handlers.NewFineHandler(teamService, ledgerService, hub)
	paymentHandler := handlers.NewPaymentHandler(teamService, ledgerService, hub)
	disputeHandler := handlers.NewDisputeHandler(teamService, disputeService, hub)
	activityHandler := handlers.NewActivityHandler(teamService, activityService)
	sseHandler := handlers.NewSSEHandler(hub, teamService)
	inviteHandler := handlers.NewInviteHandler(teamService, userService)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)

	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Post("/auth/logout-all", authHandler.LogoutAll)

	protected.Get("/users/me", userHandler.GetMe)
	protected.Patch("/users/me", userHandler.UpdateMe)

	protected.Get("/teams", teamHandler.List)
	protected.Post("/teams", teamHandler.Create)
	protected.Get("/teams/:id", teamHandler.Get)
	protected.Patch("/teams/:id/settings", teamHandler.UpdateSettings)
	protected.Delete("/teams/:id", teamHandler.Delete)
	protected.Get("/teams/:id/members", teamHandler.GetMembers)
	protected.Patch("/teams/:id/members/:memberId/role", teamHandler.SetMemberRole)
	protected.Delete("/teams/:id/members/:memberId", teamHandler.RemoveMember)
	protected.Post("/teams/:id/leave", teamHandler.LeaveTeam)
	protected.Post("/teams/:id/invites", teamHandler.InviteMember)
	protected.Get("/teams/:id/invites", teamHandler.GetTeamInvites)
	protected.Delete("/teams/:id/invites/:inviteId", teamHandler.CancelInvite)

	protected.Get("/invites", teamHandler.GetMyInvites)
	protected.Post("/invites/:inviteId/accept", teamHandler.AcceptInvite)
	protected.Post("/invites/:inviteId/decline", teamHandler.DeclineInvite)

	protected.Get("/teams/:id/rules", ruleHandler.List)
	protected.Post("/teams/:id/rules", ruleHandler.Create)
	protected.Get("/teams/:id/rules/:ruleId", ruleHandler.Get)
	protected.Patch("/teams/:id/rules/:ruleId", ruleHandler.Update)
	protected.Delete("/teams/:id/rules/:ruleId", ruleHandler.Deactivate)

	protected.Get("/teams/:id/fines", fineHandler.List)
	protected.Post("/teams/:id/fines", fineHandler.Create)
	protected.Get("/teams/:id/fines/:fineId", fineHandler.Get)
	protected.Delete("/teams/:id/fines/:fineId", fineHandler.Delete)
	protected.Get("/teams/:id/balances", fineHandler.Balances)

	protected.Get("/teams/:id/payments", paymentHandler.List)
	protected.Post("/teams/:id/payments", paymentHandler.Record)

	protected.Post("/teams/:id/fines/:fineId/dispute", disputeHandler.Create)
	protected.Get("/teams/:id/disputes", disputeHandler.List)
	protected.Get("/teams/:id/disputes/:disputeId", disputeHandler.Get)
	protected.Post("/teams/:id/disputes/:disputeId/vote", disputeHandler.Vote)
	protected.Post("/teams/:id/disputes/:disputeId/resolve", disputeHandler.Resolve)
	protected.Get("/teams/:id/disputes/:disputeId/votes", disputeHandler.ListVotes)

	protected.Get("/teams/:id/activity", activityHandler.List)

	protected.Get("/teams/:id/events", sseHandler.Connect)
	protected.Post("/sse/:clientId/subscribe/:teamId", sseHandler.Subscribe)
	protected.Post("/sse/:clientId/unsubscribe/:teamId", sseHandler.Unsubscribe)

	api.Get("/health", func(c *drift.Context) {
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})

	// Public invite pages (no auth required)
	app.Get("/invite/:inviteId", inviteHandler.ViewInvite)
	app.Post("/invite/:inviteId/accept", inviteHandler.AcceptInvite)
	app.Post("/invite/:inviteId/decline", inviteHandler.DeclineInvite)

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		for range ticker.C {
			if err := tokenService.CleanupExpired(context.Background()); err != nil {
				slog.Warn("refresh token cleanup failed", "error", err)
			}
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		slog.Info("server starting", "addr", addr)
		if err := app.Run(addr); err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
}
