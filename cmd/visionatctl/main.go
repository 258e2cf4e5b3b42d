package main

import (
	"context"

	"github.com/Annabf7/el-visionat/internal/cli"
	fxmodules "github.com/Annabf7/el-visionat/internal/fx"

	"go.uber.org/fx"
)

func main() {
	cli.Execute(load)
}

// load starts the core module without the HTTP server or the cron scheduler.
func load(ctx context.Context) (*cli.Services, func(context.Context) error, error) {
	svc := &cli.Services{}
	app := fx.New(
		fxmodules.CoreModule,
		fx.NopLogger,
		fx.Populate(&svc.Sync, &svc.Schedule, &svc.Votes, &svc.Winner, &svc.Closer),
	)
	if err := app.Err(); err != nil {
		return nil, nil, err
	}
	if err := app.Start(ctx); err != nil {
		return nil, nil, err
	}
	return svc, app.Stop, nil
}
