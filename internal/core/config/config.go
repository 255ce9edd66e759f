package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// InsecureSecret 占位密钥，非 dev 环境必须覆盖
const InsecureSecret = "change-me-in-production"

type HTTP struct {
	Host            string   `mapstructure:"host"`
	Port            int      `mapstructure:"port"`
	ReadTimeoutSec  int      `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int      `mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int      `mapstructure:"idle_timeout_sec"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
}

type App struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	HTTP HTTP   `mapstructure:"http"`
}

type LogRotate struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type Log struct {
	Level  string    `mapstructure:"level"`
	JSON   bool      `mapstructure:"json"`
	Rotate LogRotate `mapstructure:"rotate"`
}

type JWT struct {
	Secret            string `mapstructure:"secret"`
	Issuer            string `mapstructure:"issuer"`
	AccessTokenTTLMin int    `mapstructure:"access_token_ttl_min"`
}

type Auth struct {
	RefreshTokenTTLDays    int      `mapstructure:"refresh_token_ttl_days"`
	BcryptCost             int      `mapstructure:"bcrypt_cost"`
	DefaultRole            string   `mapstructure:"default_role"`
	PublicRoles            []string `mapstructure:"public_roles"`
	RoleVocabulary         []string `mapstructure:"role_vocabulary"`
	RefreshCookie          string   `mapstructure:"refresh_cookie"`
	UsersEndpointAllowed   []string `mapstructure:"users_endpoint_allowed"`
	UserGetEndpointAllowed []string `mapstructure:"user_get_endpoint_allowed"`
	AssignRolesAllowed     []string `mapstructure:"assign_roles_allowed"`
}

type Redis struct {
	Addr            string `mapstructure:"addr"`
	Password        string `mapstructure:"password"`
	DB              int    `mapstructure:"db"`
	UserCacheTTLSec int    `mapstructure:"user_cache_ttl_sec"`
}

type AMQP struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type DB struct {
	Driver             string `mapstructure:"driver"`
	DSN                string `mapstructure:"dsn"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int    `mapstructure:"conn_max_lifetime_min"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
	LogLevel           string `mapstructure:"log_level"`
}

// Limits 全局 / 认证接口限流与请求约束
type Limits struct {
	RPS          float64 `mapstructure:"rps"`
	Burst        int     `mapstructure:"burst"`
	AuthRPS      float64 `mapstructure:"auth_rps"`
	AuthBurst    int     `mapstructure:"auth_burst"`
	Concurrency  int64   `mapstructure:"concurrency"`
	MaxBodyBytes int64   `mapstructure:"max_body_bytes"`
	TimeoutSec   int     `mapstructure:"timeout_sec"`
}

type Config struct {
	App    App    `mapstructure:"app"`
	Log    Log    `mapstructure:"log"`
	JWT    JWT    `mapstructure:"jwt"`
	Auth   Auth   `mapstructure:"auth"`
	DB     DB     `mapstructure:"db"`
	Redis  Redis  `mapstructure:"redis"`
	AMQP   AMQP   `mapstructure:"amqp"`
	Limits Limits `mapstructure:"limits"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "hrms-backend")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.read_timeout_sec", 10)
	v.SetDefault("app.http.write_timeout_sec", 15)
	v.SetDefault("app.http.idle_timeout_sec", 60)
	v.SetDefault("app.http.cors_origins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.rotate.enable", false)
	v.SetDefault("log.rotate.filename", "logs/app.log")
	v.SetDefault("log.rotate.max_size_mb", 100)
	v.SetDefault("log.rotate.max_backups", 7)
	v.SetDefault("log.rotate.max_age_days", 30)
	v.SetDefault("log.rotate.compress", true)

	v.SetDefault("jwt.secret", InsecureSecret)
	v.SetDefault("jwt.issuer", "hrms-backend")
	v.SetDefault("jwt.access_token_ttl_min", 15)

	v.SetDefault("auth.refresh_token_ttl_days", 15)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.default_role", "EMPLOYEE")
	v.SetDefault("auth.public_roles", []string{})
	v.SetDefault("auth.role_vocabulary", []string{})
	v.SetDefault("auth.refresh_cookie", "refresh_token")
	v.SetDefault("auth.users_endpoint_allowed", []string{"SUPER-ADMIN", "ADMIN", "MANAGER"})
	v.SetDefault("auth.user_get_endpoint_allowed", []string{"SUPER-ADMIN", "ADMIN"})
	v.SetDefault("auth.assign_roles_allowed", []string{"SUPER-ADMIN", "ADMIN"})

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "hrms.db")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime_min", 30)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("db.log_level", "warn")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.user_cache_ttl_sec", 60)

	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "hrms.events")

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.auth_rps", 5)
	v.SetDefault("limits.auth_burst", 10)
	v.SetDefault("limits.concurrency", 300)
	v.SetDefault("limits.max_body_bytes", 16<<20)
	v.SetDefault("limits.timeout_sec", 10)
}

// Load 读 YAML（可缺省）+ APP_ 前缀环境变量；path 为空时取 CONFIG_PATH
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	explicit := path != ""
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 默认路径不存在时只用默认值 + 环境变量
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) IsDev() bool {
	e := strings.ToLower(c.App.Env)
	return e == "" || e == "dev" || e == "local" || e == "test"
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported db.driver %q", c.DB.Driver)
	}
	if c.App.HTTP.Port <= 0 || c.App.HTTP.Port > 65535 {
		return fmt.Errorf("config: invalid app.http.port %d", c.App.HTTP.Port)
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: jwt.secret must not be empty")
	}
	if c.JWT.AccessTokenTTLMin <= 0 || c.Auth.RefreshTokenTTLDays <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	return nil
}

// Warnings 可启动但需要运维注意的配置
func (c *Config) Warnings() []string {
	var w []string
	if c.JWT.Secret == InsecureSecret && !c.IsDev() {
		w = append(w, "jwt.secret is the insecure placeholder; set APP_JWT_SECRET")
	}
	if len(c.JWT.Secret) < 32 && c.JWT.Secret != InsecureSecret {
		w = append(w, "jwt.secret is shorter than 32 bytes")
	}
	return w
}
