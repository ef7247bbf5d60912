package main

var secrets = map[string]map[string]string{
	"development": map[string]string{
		"ENV":          "development",
		"PORT":         "8000",
		"BASE_URL":     "http://localhost:8000",
		"APP_NAME":     "samantha",
		"COMPANY_NAME": "Samantha",
		"EMAIL_FROM":   "noreply@samantha.chat",
		"CHAIN_ID":     "42161",
		"RPC_URL":      "https://arb1.arbitrum.io/rpc",
	},
	"production": map[string]string{
		"BASE_URL":            "https://www.samantha.chat",
		"APP_NAME":            "samantha",
		"COMPANY_NAME":        "Samantha",
		"EMAIL_FROM":          "noreply@samantha.chat",
		"CHAIN_ID":            "42161",
		"RPC_URL":             "$e1$tIADKaGY6UHukxlUPwzAS5IvNJ/OifbiPM1Le7M5xCDvlNMiE7P/Av3tSVDgONOOcsw8Gbnbatmhc4JqKvOp2hNpDqZvOmx7EXqgKz2MtNwB5J6rPaPeB++TpGZzkRUJ/Q==",
		"OPERATOR_ADDRESS":    "0x20dE070F1887f9EA0Fd0Aa33E32d9e86B0C7fA4a",
		"ADMIN_PASSWORD_HASH": "$e1$FUzn+pdjGF08TJV8fniZkPNAyNRSguxdNH7l6x8EaXopwDupmK7KVwFQ0XfsM/kNPcj09EPVXFlGukmMXxkjZzi4Y5briTJmLA1M9kD6",
		"AI_API_KEY":          "$e1$yNbM9yoHAMhAC9LdltNN2dQezxfa2zfXuCR1NJmUb6fbASErb11dsBlk7MYwqBI2MbOUz8jYu59O4wAv",
	},
}
