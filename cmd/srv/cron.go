package main

import (
	"github.com/urfave/cli/v2"

	"github.com/flowjournal/backend/internal/domain/cron"
	"github.com/flowjournal/backend/pkg/xcontext"
)

func (s *srv) startCron(*cli.Context) error {
	s.loadContext()
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
	s.loadRedisClient()
	s.loadRepos()
	s.loadDomains()

	cronJobManager := cron.NewCronJobManager()
	cronJobManager.Start(
		s.ctx,
		cron.NewCloseDrawsCronJob(s.ctx, s.drawRepo, s.selector),
	)

	return nil
}
