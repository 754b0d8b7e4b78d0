package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"go-gin-user-dashboard/internal/feature/user"
	"go-gin-user-dashboard/internal/feature/usertable"
)

type HTTP struct {
	Host              string
	Port              int
	ReadTimeoutSec    int
	WriteTimeoutSec   int
	IdleTimeoutSec    int
	RequestTimeoutSec int
	RateLimitRPS      float64
	RateLimitBurst    int
	MaxConcurrency    int64
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

// Upstream 用户列表接口
type Upstream struct {
	BaseURL          string
	UsersPath        string
	PageSize         int
	TimeoutSec       int
	MountWaitMs      int
	CredentialCookie string
}

type Table struct {
	RowsPerPageOptions []int
	DefaultRowsPerPage int
	DefaultOrderBy     string
	DefaultOrder       string
	FilterField        string
}

type Session struct {
	Store      string // memory | redis
	CookieName string
	TTLMin     int
	KeyPrefix  string
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Config struct {
	App      App
	Log      Log
	Upstream Upstream
	Table    Table
	Session  Session
	Redis    Redis `mapstructure:"redis"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "user-dashboard")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8090)
	v.SetDefault("app.http.readTimeoutSec", 5)
	v.SetDefault("app.http.writeTimeoutSec", 15)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.http.requestTimeoutSec", 10)
	v.SetDefault("app.http.rateLimitRPS", 200)
	v.SetDefault("app.http.rateLimitBurst", 400)
	v.SetDefault("app.http.maxConcurrency", 300)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.filename", "logs/dashboard.log")
	v.SetDefault("log.file.maxSizeMB", 100)
	v.SetDefault("log.file.maxBackups", 7)
	v.SetDefault("log.file.maxAgeDays", 30)

	v.SetDefault("upstream.baseURL", "http://127.0.0.1:8081")
	v.SetDefault("upstream.usersPath", "/admin/v1/users")
	v.SetDefault("upstream.pageSize", 100)
	v.SetDefault("upstream.timeoutSec", 10)
	v.SetDefault("upstream.mountWaitMs", 1500)
	v.SetDefault("upstream.credentialCookie", "access")

	def := usertable.DefaultOptions()
	v.SetDefault("table.rowsPerPageOptions", def.RowsPerPageOptions)
	v.SetDefault("table.defaultRowsPerPage", def.DefaultRowsPerPage)
	v.SetDefault("table.defaultOrderBy", string(def.DefaultOrderBy))
	v.SetDefault("table.defaultOrder", string(def.DefaultOrder))
	v.SetDefault("table.filterField", string(def.FilterField))

	v.SetDefault("session.store", "memory")
	v.SetDefault("session.cookieName", "dash_sid")
	v.SetDefault("session.ttlMin", 30)
	v.SetDefault("session.keyPrefix", "dashboard:session:")
}

// Load 读取 yaml 配置；文件不存在时只用默认值 + 环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
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
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if _, err := c.TableOptions(); err != nil {
		return nil, fmt.Errorf("table config: %w", err)
	}
	switch c.Session.Store {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("session store %q: want memory or redis", c.Session.Store)
	}
	return &c, nil
}

func MustLoad(path string) *Config {
	c, err := Load(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return c
}

// TableOptions 转成表格控制器的配置
func (c *Config) TableOptions() (usertable.Options, error) {
	orderBy, err := user.ParseField(c.Table.DefaultOrderBy)
	if err != nil {
		return usertable.Options{}, err
	}
	filter, err := user.ParseField(c.Table.FilterField)
	if err != nil {
		return usertable.Options{}, err
	}
	order, err := usertable.ParseOrder(c.Table.DefaultOrder)
	if err != nil {
		return usertable.Options{}, err
	}
	o := usertable.Options{
		RowsPerPageOptions: c.Table.RowsPerPageOptions,
		DefaultRowsPerPage: c.Table.DefaultRowsPerPage,
		DefaultOrderBy:     orderBy,
		DefaultOrder:       order,
		FilterField:        filter,
	}
	return o, o.Validate()
}

func (u Upstream) Timeout() time.Duration { return time.Duration(u.TimeoutSec) * time.Second }

func (u Upstream) MountWait() time.Duration { return time.Duration(u.MountWaitMs) * time.Millisecond }

func (s Session) TTL() time.Duration { return time.Duration(s.TTLMin) * time.Minute }
