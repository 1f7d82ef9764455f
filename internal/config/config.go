package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ahmednader515/pharmacy-store-2-sub000/internal/pricing"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Migrations MigrationsConfig `yaml:"migrations"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
	Reports    ReportsConfig    `yaml:"reports"`
	Notify     NotifyConfig     `yaml:"notifications"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// DeliveryConfig — упорядоченный список вариантов доставки.
// Порядок важен: вариант по умолчанию — последний в списке.
type DeliveryConfig struct {
	Options []pricing.DeliveryOption `yaml:"options"`
}

// ReportsConfig — настройки кеша сводных отчётов.
// Если указан redis_address, кеш хранится в Redis, иначе в памяти процесса.
type ReportsConfig struct {
	RedisAddress string        `yaml:"redis_address" env:"REDIS_ADDRESS"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env-default:"60s"`
	CacheSize    int           `yaml:"cache_size" env-default:"128"`
}

// NotifyConfig — настройки SMS-шлюза для уведомлений покупателей.
// Пустой адрес отключает уведомления.
type NotifyConfig struct {
	GatewayAddress string `yaml:"gateway_address" env:"SMS_GATEWAY_ADDRESS"`
	APIKey         string `yaml:"-" env:"SMS_GATEWAY_API_KEY"`
	Sender         string `yaml:"sender" env-default:"pharmacy-store"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s", configPath)
	}

	return &cfg
}
