package config

// defaults returns the built-in configuration values, overridable by the
// YAML file and env vars
func defaults() map[string]any {
	return map[string]any{
		"db.host":     "localhost",
		"db.port":     5432,
		"db.user":     "postgres",
		"db.password": "postgres",
		"db.name":     "taskmanager",
		"db.ssl_mode": "disable",

		"log.level":  "info",
		"log.format": "json",

		"feed.base_url":                        "https://cbu.uz/uz/arkhiv-kursov-valyut/json",
		"feed.api_key":                         "",
		"feed.timeout":                         "10s",
		"feed.circuit_breaker.max_failures":    5,
		"feed.circuit_breaker.timeout":         "60s",
		"feed.circuit_breaker.half_open_limit": 1,

		"money.tolerance_uzs": 0.01,

		"earnings.correction_grace_window": "48h",

		// Official rate at 09:00, status sweep at 02:30.
		"schedule.daily_rate_fetch":  "0 9 * * *",
		"schedule.nightly_recompute": "30 2 * * *",
	}
}
