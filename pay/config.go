package pay

import (
	"time"

	"app/lib"
)

// Config holds every policy number of the payment engine. All of it comes
// from the environment so nothing security relevant is a hardcoded constant.
type Config struct {
	// Secret is the server-wide key material mixed into private key
	// derivation. Rotating it orphans unswept ephemeral balances, so sweep
	// before rotating.
	Secret        string
	KDFIterations int
	SaltLength    int

	OperatorAddress string
	Price           *lib.BigInt
	TolerancePct    int64
	ReplayWindow    time.Duration
	RecentTxLimit   int
	FallbackBalance bool

	TrialDuration     time.Duration
	PaidDuration      time.Duration
	SessionLifetime   time.Duration
	FingerprintStrict bool

	GasReserve     *lib.BigInt
	MinSweep       *lib.BigInt
	SweepDelay     time.Duration
	ConfirmTimeout time.Duration
}

func ConfigFromEnv() *Config {
	return &Config{
		Secret:            lib.Env("SECRET", "keyboardcat"),
		KDFIterations:     int(lib.EnvInt("KDF_ITERATIONS", 100000)),
		SaltLength:        int(lib.EnvInt("KDF_SALT_LENGTH", 16)),
		OperatorAddress:   lib.Env("OPERATOR_ADDRESS", lib.ADDRESS_ZERO),
		Price:             lib.EnvBn("PRICE_WEI", lib.Bn(1, 15)),
		TolerancePct:      lib.EnvInt("PRICE_TOLERANCE_PCT", 5),
		ReplayWindow:      lib.EnvDuration("REPLAY_WINDOW", 24*time.Hour),
		RecentTxLimit:     int(lib.EnvInt("RECENT_TX_LIMIT", 15)),
		FallbackBalance:   lib.EnvBool("PAY_FALLBACK_BALANCE"),
		TrialDuration:     lib.EnvDuration("TRIAL_DURATION", 3*time.Minute),
		PaidDuration:      lib.EnvDuration("PAID_DURATION", time.Hour),
		SessionLifetime:   lib.EnvDuration("SESSION_LIFETIME", 24*time.Hour),
		FingerprintStrict: lib.EnvBool("FINGERPRINT_STRICT"),
		GasReserve:        lib.EnvBn("GAS_RESERVE_WEI", lib.Bn(5, 13)),
		MinSweep:          lib.EnvBn("MIN_SWEEP_WEI", lib.Bn(1, 14)),
		SweepDelay:        lib.EnvDuration("SWEEP_DELAY", 2*time.Second),
		ConfirmTimeout:    lib.EnvDuration("CONFIRM_TIMEOUT", 90*time.Second),
	}
}

// PriceFloor is the smallest balance delta accepted as payment:
// Price * (1 - tolerance). The boundary itself is accepted.
func (c *Config) PriceFloor() *lib.BigInt {
	return c.Price.Mul(lib.Bn(100-c.TolerancePct, 0)).Div(lib.Bn(100, 0))
}
