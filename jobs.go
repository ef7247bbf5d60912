package main

import (
	"context"
	"time"

	"app/lib"
	"app/pay"
)

// setupJobs registers the background work. Jobs are registered here instead
// of in their own package so they close over the engine.
func setupJobs(engine *pay.Engine) {
	lib.RegisterSchedule("sweep", lib.EnvDuration("SWEEP_INTERVAL", 15*time.Minute))
	lib.RegisterJob("sweep", func(c *lib.Ctx, args lib.J) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if id := args.Get("sessionId"); id != "" {
			_, err := engine.SweepOne(ctx, id)
			if err != nil && err != pay.ErrUnknownSession {
				lib.LogError("sweep job failed", lib.J{"sessionId": id, "error": err.Error()})
			}
			return
		}
		_, err := engine.SweepAll(ctx)
		if err == pay.ErrNoOperator {
			// Already warned at startup, don't panic the schedule every run.
			return
		}
		lib.Check(err)
	})

	lib.RegisterSchedule("session-reaper", time.Hour)
	lib.RegisterJob("session-reaper", func(c *lib.Ctx, args lib.J) {
		_, err := engine.Reap(time.Now().UTC())
		lib.Check(err)
	})
}
