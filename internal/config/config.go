package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs. The JWT secret is process-wide: it is read once at startup and
// handed into each component, and rotating it intentionally invalidates
// every outstanding token.
type Config struct {
	Env                 string // application environment (e.g. "dev", "prod")
	Port                string // HTTP port to listen on
	DBUser              string // database username
	DBPass              string // database password (optional)
	DBHost              string // database host address
	DBPort              string // database port number
	DBName              string // database name
	JWTSecret           string // secret used to sign JWTs
	AccessTTLMin        int    // access token time-to-live in minutes
	RefreshTTLDays      int    // refresh token time-to-live in days
	BcryptCost          int    // bcrypt cost for password hashing
	VerifyTokenTTLHours int    // email verification token lifetime in hours
	ResetTokenTTLHours  int    // password reset token lifetime in hours
	CacheTTLHours       int    // role/user-data cache entry lifetime in hours
	SweepIntervalMin    int    // minutes between expired-token sweeps
	FrontendURL         string // base URL used in email links
	FromName            string // display name used in outbound email subjects
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message; values with sensible
// defaults go through intOr()/strOr().
func Load() Config {
	return Config{
		Env:                 must("APP_ENV"),
		Port:                must("APP_PORT"),
		DBUser:              must("DB_USER"),
		DBPass:              os.Getenv("DB_PASS"), // empty allowed
		DBHost:              must("DB_HOST"),
		DBPort:              must("DB_PORT"),
		DBName:              must("DB_NAME"),
		JWTSecret:           must("JWT_SECRET"),
		AccessTTLMin:        mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:      mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:          mustInt("BCRYPT_COST"),
		VerifyTokenTTLHours: intOr("VERIFY_TOKEN_TTL_HOURS", 24),
		ResetTokenTTLHours:  intOr("RESET_TOKEN_TTL_HOURS", 1),
		CacheTTLHours:       intOr("CACHE_TTL_HOURS", 24),
		SweepIntervalMin:    intOr("TOKEN_SWEEP_INTERVAL_MIN", 60),
		FrontendURL:         strOr("FRONTEND_URL", "http://localhost:3000"),
		FromName:            strOr("MAIL_FROM_NAME", "Ecommerce Webservices"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// intOr reads an optional integer variable, falling back to the default
// when unset or unparsable.
func intOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

// strOr reads an optional string variable with a default.
func strOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
