package main

import (
	_ "app/migrations"
	"embed"
	"os"
	"time"

	"github.com/joho/godotenv"

	"app/ai"
	"app/lib"
	"app/pay"
)

//go:embed views assets migrations
var FS embed.FS

func main() {
	if !lib.IsProduction() && os.Getenv("SECRET") == "" {
		os.Setenv("SECRET", "0b31347d4f8694f6b38fd1d7a9bca7f845a3e0e0b57947a47e0e79c80c4a2d86")
	}
	godotenv.Overload()
	lib.SecretsLoad(os.Getenv("SECRET"), secrets[lib.Env("ENV", "development")])

	s := lib.NewServer(FS)
	s.Ledger = lib.NewChainClient()

	cfg := pay.ConfigFromEnv()
	// A bad operator address means sweeps burn funds or fail on submit.
	if !lib.HexAddressRegexp.MatchString(cfg.OperatorAddress) || cfg.OperatorAddress == lib.ADDRESS_ZERO {
		lib.LogWarning("operator address missing or invalid, sweeps disabled until set", lib.J{
			"address": cfg.OperatorAddress,
		})
	}
	engine := pay.New(cfg, pay.NewDBRepo(s.Database), s.Ledger)
	// A confirmed payment queues its own sweep shortly after, the scheduled
	// batch sweep is only the backstop.
	engine.OnPaid = func(sessionID string) {
		s.Queue.Delay("sweep", lib.J{"sessionId": sessionID}, time.Minute, lib.JobPriorityHigh)
	}

	speech, completer, err := ai.New()
	if err != nil {
		lib.LogWarning("ai providers disabled", lib.J{"error": err.Error()})
	}

	setupToggles()
	setupRoutes(s, engine, speech, completer)
	setupJobs(engine)
	s.Queue.RunCliJob()
}
