package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Game      GameConfig      `mapstructure:"game"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Spectator SpectatorConfig `mapstructure:"spectator"`
	API       APIConfig       `mapstructure:"api"`
	Health    HealthConfig    `mapstructure:"health"`
}

type AppConfig struct {
	Name      string `mapstructure:"name"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // json 或 console
}

type GameConfig struct {
	Preset        string        `mapstructure:"preset"`         // 默认规则名
	PresetsFile   string        `mapstructure:"presets_file"`   // 规则文件, 为空时只有福州麻将
	WorkerCount   int           `mapstructure:"worker_count"`   // 定时任务工作协程数
	TickInterval  time.Duration `mapstructure:"tick_interval"`  // 时间轮每格时长, 决定超时精度
	EvictInterval time.Duration `mapstructure:"evict_interval"` // 清理已结束牌局的间隔
	EvictAfter    time.Duration `mapstructure:"evict_after"`    // 牌局结束后在内存中保留的时间
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`   // 未结束牌局无人操作多久后关闭, 0 不关闭
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	QueueGroup    string        `mapstructure:"queue_group"`
	Workers       int           `mapstructure:"workers"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN PostgreSQL 连接串
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// Addr Redis 地址
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type SpectatorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type APIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Mode    string `mapstructure:"mode"` // gin 模式: debug, release, test
}

type HealthConfig struct {
	Addr string `mapstructure:"addr"`
}

// setDefaults 配置文件缺省时使用的默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "mahjong")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	v.SetDefault("game.preset", "福州麻将")
	v.SetDefault("game.worker_count", 10)
	v.SetDefault("game.tick_interval", 100*time.Millisecond)
	v.SetDefault("game.idle_timeout", 30*time.Minute)
	v.SetDefault("game.evict_interval", time.Minute)
	v.SetDefault("game.evict_after", 10*time.Minute)

	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.queue_group", "mahjong")
	v.SetDefault("nats.workers", 16)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.snapshot_ttl", time.Hour)

	v.SetDefault("spectator.enabled", true)
	v.SetDefault("spectator.addr", ":8090")
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.addr", ":8080")
	v.SetDefault("api.mode", "release")
	v.SetDefault("health.addr", ":8081")
}

// Load 从指定路径加载配置, 环境变量 MAHJONG_<SECTION>_<KEY> 可以覆盖文件中的值
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MAHJONG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return &cfg, nil
}
