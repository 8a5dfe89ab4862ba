package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"loanflow/internal/domain/identity"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Config struct {
	AppPort   string `mapstructure:"app_port"`
	AppEnv    string `mapstructure:"app_env"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	DBDriver   string `mapstructure:"db_driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
	MySQLHost  string `mapstructure:"mysql_host"`
	MySQLPort  string `mapstructure:"mysql_port"`
	MySQLDB    string `mapstructure:"mysql_db"`
	MySQLUser  string `mapstructure:"mysql_user"`
	MySQLPass  string `mapstructure:"mysql_pass"`

	// Empty RedisAddr disables idempotency and token revocation.
	RedisAddr    string `mapstructure:"redis_addr"`
	RedisDB      int    `mapstructure:"redis_db"`
	IdempTTLSecs int    `mapstructure:"idempotency_ttl_seconds"`

	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
	// Lifetime of issued tokens; also how long a revocation is kept.
	JWTTTL time.Duration `mapstructure:"jwt_ttl"`

	// Comma-separated role lists; empty admits any authenticated caller.
	LoanCreateRoles  string `mapstructure:"loan_create_roles"`
	LoanReviewRoles  string `mapstructure:"loan_review_roles"`
	LoanApproveRoles string `mapstructure:"loan_approve_roles"`
	LoanListRoles    string `mapstructure:"loan_list_roles"`
	AdminRoles       string `mapstructure:"admin_roles"`

	RateLimitEnabled bool    `mapstructure:"rate_limit_enabled"`
	RateLimitRPS     float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst   int     `mapstructure:"rate_limit_burst"`

	// Empty RabbitMQURL keeps loan events in-process (dropped).
	RabbitMQURL      string `mapstructure:"rabbitmq_url"`
	RabbitMQExchange string `mapstructure:"rabbitmq_exchange"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Load reads defaults, then an optional config.yml in dir, then the environment.
func Load(dir string) (*Config, error) {
	v := viper.New()
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	v.SetDefault("app_port", "8080")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("db_driver", DriverMySQL)
	v.SetDefault("sqlite_path", "loanflow.db")
	v.SetDefault("mysql_host", "mysql")
	v.SetDefault("mysql_port", "3306")
	v.SetDefault("mysql_db", "loanflow")
	v.SetDefault("mysql_user", "loanflow")
	v.SetDefault("mysql_pass", "loanflow")

	v.SetDefault("redis_addr", "redis:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("idempotency_ttl_seconds", 300)

	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_issuer", "loanflow")
	v.SetDefault("jwt_ttl", time.Hour)

	v.SetDefault("loan_create_roles", "")
	v.SetDefault("loan_review_roles", "")
	v.SetDefault("loan_approve_roles", "")
	v.SetDefault("loan_list_roles", "")
	v.SetDefault("admin_roles", string(identity.RoleAdmin))

	v.SetDefault("rate_limit_enabled", false)
	v.SetDefault("rate_limit_rps", 10)
	v.SetDefault("rate_limit_burst", 20)

	v.SetDefault("rabbitmq_url", "")
	v.SetDefault("rabbitmq_exchange", "loanflow.events")

	v.SetDefault("shutdown_timeout", 10*time.Second)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverMySQL:
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
		if c.IsProduction() {
			return errors.New("DB_DRIVER=sqlite is not allowed when APP_ENV=production")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if _, err := net.LookupPort("tcp", c.AppPort); err != nil {
		return fmt.Errorf("invalid APP_PORT %q: %w", c.AppPort, err)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("missing JWT_SECRET")
	}
	if c.RateLimitEnabled && (c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0) {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempTTLSecs) * time.Second
}

// RoutePolicy is the role set each guarded route accepts.
type RoutePolicy struct {
	Create  []identity.Role
	Review  []identity.Role
	Approve []identity.Role
	List    []identity.Role
	Admin   []identity.Role
}

func (c *Config) Policy() RoutePolicy {
	return RoutePolicy{
		Create:  identity.ParseRoles(c.LoanCreateRoles),
		Review:  identity.ParseRoles(c.LoanReviewRoles),
		Approve: identity.ParseRoles(c.LoanApproveRoles),
		List:    identity.ParseRoles(c.LoanListRoles),
		Admin:   identity.ParseRoles(c.AdminRoles),
	}
}
