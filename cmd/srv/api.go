package main

import (
	"fmt"
	"net/http"

	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/flowjournal/backend/internal/middleware"
	"github.com/flowjournal/backend/pkg/logger"
	"github.com/flowjournal/backend/pkg/router"
	"github.com/flowjournal/backend/pkg/xcontext"
)

func (s *srv) startApi(*cli.Context) error {
	s.loadContext()
	db := s.newDatabase()
	s.ctx = xcontext.WithDB(s.ctx, db)
	s.migrateDB()
	s.loadRedisClient()
	s.loadRepos()
	s.loadDomains()
	s.loadRouter(db)

	cfg := xcontext.Configs(s.ctx)
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ApiServer.Port),
		Handler: s.router.Handler(),
	}

	xcontext.Logger(s.ctx).Infof("Starting server on port %s", cfg.ApiServer.Port)
	if err := s.server.ListenAndServe(); err != nil {
		panic(err)
	}
	xcontext.Logger(s.ctx).Infof("Server stopped")
	return nil
}

func (s *srv) loadRouter(db *gorm.DB) {
	s.router = router.New(db, xcontext.Configs(s.ctx), logger.NewLogger())
	s.router.AddCloser(middleware.Logger())

	// Public API.
	router.GET(s.router, "/draws", s.drawDomain.GetList)
	router.GET(s.router, "/draws/:id", s.drawDomain.Get)
	router.GET(s.router, "/draws/:id/result", s.drawDomain.GetResult)

	// These following APIs need authentication with Access Token.
	authRouter := s.router.Branch()
	authVerifier := middleware.NewAuthVerifier().WithAccessToken()
	authRouter.Before(authVerifier.Middleware())
	{
		// Draw API
		router.POST(authRouter, "/draws", s.drawDomain.Create)
		router.POST(authRouter, "/draws/:id/enter", s.drawDomain.Enter)
		router.POST(authRouter, "/draws/:id/cancel", s.drawDomain.Cancel)

		// Points API
		router.GET(authRouter, "/points/total", s.pointsDomain.GetMyPoints)
		router.GET(authRouter, "/points/history", s.pointsDomain.GetHistory)
	}
}
