package config // package config loads application configuration from environment variables

import (
    "errors"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
    StoreMySQL  = "mysql"
    StoreMongo  = "mongo"
    StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env         string // application environment (dev, test, prod)
    Port        string // HTTP port to listen on
    StoreDriver string // mysql, mongo or memory

    DBUser string // MySQL username
    DBPass string // MySQL password (optional)
    DBHost string // MySQL host address
    DBPort string // MySQL port number
    DBName string // MySQL database name

    MongoURI      string // MongoDB connection string
    MongoDatabase string // MongoDB database name

    JWTSecret    string        // secret used to sign admin tokens
    JWTExpiresIn time.Duration // admin token lifetime
    AdminEmail   string        // the single admin login
    AdminPass    string        // plain admin password, hashed at startup
    BcryptCost   int           // bcrypt cost for the admin password hash

    Location *time.Location // zone used to interpret ?date= on the admin listing

    RabbitMQURL        string // empty disables booking events
    BookingLogConsumer bool   // run the booking log consumer in-process
    BookingLogPath     string // file the consumer appends to

    LogLevel        string        // zap level name
    ShutdownTimeout time.Duration // grace period for in-flight requests
}

// IsProduction reports whether the service runs with production defaults.
func (c Config) IsProduction() bool {
    return c.Env == "prod" || c.Env == "production"
}

// Load reads a .env file when present and then builds a Config from the
// environment.  All missing or malformed required variables are reported
// together.
func Load() (Config, error) {
    _ = godotenv.Load()

    l := &loader{}
    cfg := Config{
        Env:         envStr("APP_ENV", "dev"),
        Port:        envStr("APP_PORT", envStr("PORT", "3000")),
        StoreDriver: strings.ToLower(envStr("STORE_DRIVER", StoreMySQL)),

        JWTSecret:    l.must("JWT_SECRET"),
        JWTExpiresIn: l.duration("JWT_EXPIRES_IN", 2*time.Hour),
        AdminEmail:   strings.ToLower(strings.TrimSpace(l.must("ADMIN_EMAIL"))),
        AdminPass:    l.must("ADMIN_PASSWORD"),
        BcryptCost:   l.integer("BCRYPT_COST", 10),

        RabbitMQURL:        envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
        BookingLogConsumer: envBool("BOOKING_LOG_CONSUMER", false),
        BookingLogPath:     envStr("BOOKING_LOG_PATH", "logs/booking.log"),

        LogLevel:        envStr("LOG_LEVEL", "info"),
        ShutdownTimeout: l.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
    }

    switch cfg.StoreDriver {
    case StoreMySQL:
        cfg.DBUser = l.must("DB_USER")
        cfg.DBPass = os.Getenv("DB_PASS")
        cfg.DBHost = l.must("DB_HOST")
        cfg.DBPort = envStr("DB_PORT", "3306")
        cfg.DBName = l.must("DB_NAME")
    case StoreMongo:
        cfg.MongoURI = envStr("MONGODB_URI", os.Getenv("MONGO_URI"))
        if cfg.MongoURI == "" {
            l.errs = append(l.errs, errors.New("missing required env var: MONGODB_URI"))
        }
        cfg.MongoDatabase = envStr("MONGODB_DATABASE", "salon")
    case StoreMemory:
    default:
        l.errs = append(l.errs, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver))
    }

    tz := envStr("TIMEZONE", "UTC")
    loc, err := time.LoadLocation(tz)
    if err != nil {
        l.errs = append(l.errs, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err))
        loc = time.UTC
    }
    cfg.Location = loc

    if cfg.JWTExpiresIn <= 0 {
        l.errs = append(l.errs, errors.New("JWT_EXPIRES_IN must be positive"))
    }

    if len(l.errs) > 0 {
        return Config{}, errors.Join(l.errs...)
    }
    return cfg, nil
}

// loader collects configuration errors so that a single start attempt
// reports every problem at once.
type loader struct {
    errs []error
}

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
    }
    return v
}

// integer is like envInt but records a malformed value instead of
// silently falling back.
func (l *loader) integer(key string, def int) int {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        l.errs = append(l.errs, fmt.Errorf("invalid int for %s: %q", key, s))
        return def
    }
    return n
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
    s := os.Getenv(key)
    if s == "" {
        return def
    }
    d, err := time.ParseDuration(s)
    if err != nil {
        l.errs = append(l.errs, fmt.Errorf("invalid duration for %s: %q", key, s))
        return def
    }
    return d
}
