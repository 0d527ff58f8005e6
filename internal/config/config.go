package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AuditVerbosityHigh enables auditing of read-only routes.
const AuditVerbosityHigh = "high"

// Config holds application level configuration aggregated from env/config files.
// It is built once at startup and handed to components by value.
type Config struct {
	Server struct {
		Addr string
		// TrustedProxies is a comma separated list of proxy addresses or CIDRs
		// whose X-Forwarded-For headers are believed.
		TrustedProxies string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret   string
		TokenExpiry time.Duration
	}
	LDAP struct {
		URL                string
		DomainComponents   string
		UserAttribute      string
		Timeout            time.Duration
		InsecureSkipVerify bool
	}
	Audit struct {
		Verbosity string
		QueueSize int
		Workers   int
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
		Profile   string
	}
	Throttle struct {
		Window time.Duration
		Limit  int
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
}

// envBindings maps config keys to the environment names the server has always used.
var envBindings = map[string][]string{
	"server.addr":             {"SERVER_ADDR"},
	"server.trustedproxies":   {"TRUSTED_PROXIES"},
	"database.path":           {"DB_PATH"},
	"auth.jwtsecret":          {"JWT_SECRET"},
	"auth.tokenexpiry":        {"TOKEN_EXPIRY"},
	"ldap.url":                {"LDAP_URL"},
	"ldap.domaincomponents":   {"LDAP_DOMAIN_COMPONENTS"},
	"ldap.userattribute":      {"LDAP_USER_ATTRIBUTE"},
	"ldap.timeout":            {"LDAP_TIMEOUT"},
	"ldap.insecureskipverify": {"LDAP_INSECURE_SKIP_VERIFY"},
	"audit.verbosity":         {"LOGGING"},
	"audit.queuesize":         {"AUDIT_QUEUE_SIZE"},
	"audit.workers":           {"AUDIT_WORKERS"},
	"audit.bucket":            {"AUDIT_S3_BUCKET"},
	"audit.keyprefix":         {"AUDIT_S3_KEY_PREFIX"},
	"audit.region":            {"AUDIT_S3_REGION"},
	"audit.endpoint":          {"AUDIT_S3_ENDPOINT"},
	"audit.profile":           {"AWS_PROFILE"},
	"throttle.window":         {"LOGIN_WINDOW"},
	"throttle.limit":          {"LOGIN_LIMIT"},
	"redis.addr":              {"REDIS_ADDR"},
	"redis.password":          {"REDIS_PASSWORD"},
	"redis.db":                {"REDIS_DB"},
	"log.level":               {"LOG_LEVEL"},
	"log.format":              {"LOG_FORMAT"},
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv(".env")
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetDefault("server.addr", "0.0.0.0:3001")
	v.SetDefault("server.trustedproxies", "")
	v.SetDefault("database.path", "data/homeinv.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenexpiry", time.Hour)
	v.SetDefault("ldap.url", "")
	v.SetDefault("ldap.domaincomponents", "")
	v.SetDefault("ldap.userattribute", "cn")
	v.SetDefault("ldap.timeout", 5*time.Second)
	v.SetDefault("ldap.insecureskipverify", false)
	v.SetDefault("audit.verbosity", "")
	v.SetDefault("audit.queuesize", 256)
	v.SetDefault("audit.workers", 2)
	v.SetDefault("audit.bucket", "")
	v.SetDefault("audit.keyprefix", "audit")
	v.SetDefault("audit.region", "us-east-1")
	v.SetDefault("audit.endpoint", "")
	v.SetDefault("audit.profile", "")
	v.SetDefault("throttle.window", time.Minute)
	v.SetDefault("throttle.limit", 10)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// PORT is honoured for compatibility with older deployments.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv("SERVER_ADDR") == "" {
		cfg.Server.Addr = "0.0.0.0:" + port
	}
	cfg.Audit.Verbosity = strings.ToLower(strings.TrimSpace(cfg.Audit.Verbosity))

	return cfg, nil
}

// Validate rejects configurations the auth core cannot run safely with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.TokenExpiry <= 0 {
		errs = append(errs, errors.New("TOKEN_EXPIRY must be positive"))
	}
	if c.Throttle.Window <= 0 {
		errs = append(errs, errors.New("LOGIN_WINDOW must be positive"))
	}
	if c.Throttle.Limit <= 0 {
		errs = append(errs, errors.New("LOGIN_LIMIT must be positive"))
	}
	if c.LDAP.Timeout <= 0 {
		errs = append(errs, errors.New("LDAP_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// DirectoryEnabled reports whether a directory service is configured.
func (c Config) DirectoryEnabled() bool {
	return strings.TrimSpace(c.LDAP.URL) != ""
}

// TrustedProxies splits Server.TrustedProxies. Empty means the peer address is
// always the client address.
func (c Config) TrustedProxies() []string {
	var proxies []string
	for _, p := range strings.Split(c.Server.TrustedProxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			proxies = append(proxies, p)
		}
	}
	return proxies
}

// AuditReads reports whether read-only routes are audited.
func (c Config) AuditReads() bool {
	return c.Audit.Verbosity == AuditVerbosityHigh
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
