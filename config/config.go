package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port            string        `mapstructure:"port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Database struct {
		URI            string        `mapstructure:"uri"`
		Name           string        `mapstructure:"name"`
		ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
		RunMigrations  bool          `mapstructure:"run_migrations"`
	} `mapstructure:"database"`
	Redis struct {
		Enabled  bool          `mapstructure:"enabled"`
		Host     string        `mapstructure:"host"`
		Port     string        `mapstructure:"port"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		UserTTL  time.Duration `mapstructure:"user_ttl"`
	} `mapstructure:"redis"`
	JWT struct {
		AccessSecret  string        `mapstructure:"access_secret"`
		AccessTTL     time.Duration `mapstructure:"access_ttl"`
		RefreshSecret string        `mapstructure:"refresh_secret"`
		RefreshTTL    time.Duration `mapstructure:"refresh_ttl"`
	} `mapstructure:"jwt"`
	Auth struct {
		BcryptCost int `mapstructure:"bcrypt_cost"`
	} `mapstructure:"auth"`
	Cookie struct {
		Secure bool   `mapstructure:"secure"`
		Domain string `mapstructure:"domain"`
		Path   string `mapstructure:"path"`
	} `mapstructure:"cookie"`
	Media struct {
		Provider   string `mapstructure:"provider"`
		Cloudinary struct {
			CloudName string `mapstructure:"cloud_name"`
			APIKey    string `mapstructure:"api_key"`
			APISecret string `mapstructure:"api_secret"`
			Folder    string `mapstructure:"folder"`
		} `mapstructure:"cloudinary"`
		S3 struct {
			Region        string `mapstructure:"region"`
			Bucket        string `mapstructure:"bucket"`
			BaseEndpoint  string `mapstructure:"base_endpoint"`
			AccessKey     string `mapstructure:"access_key"`
			SecretKey     string `mapstructure:"secret_key"`
			PublicBaseURL string `mapstructure:"public_base_url"`
		} `mapstructure:"s3"`
	} `mapstructure:"media"`
	Upload struct {
		TempDir      string   `mapstructure:"temp_dir"`
		MaxFileSize  int64    `mapstructure:"max_file_size"`
		AllowedTypes []string `mapstructure:"allowed_types"`
	} `mapstructure:"upload"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "users")
	v.SetDefault("database.connect_timeout", 10*time.Second)
	v.SetDefault("database.run_migrations", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.user_ttl", time.Minute)

	v.SetDefault("jwt.access_secret", "")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_secret", "")
	v.SetDefault("jwt.refresh_ttl", 10*24*time.Hour)

	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("cookie.secure", true)
	v.SetDefault("cookie.domain", "")
	v.SetDefault("cookie.path", "/")

	v.SetDefault("media.provider", "cloudinary")
	v.SetDefault("media.cloudinary.cloud_name", "")
	v.SetDefault("media.cloudinary.api_key", "")
	v.SetDefault("media.cloudinary.api_secret", "")
	v.SetDefault("media.cloudinary.folder", "")
	v.SetDefault("media.s3.region", "us-east-1")
	v.SetDefault("media.s3.bucket", "")
	v.SetDefault("media.s3.base_endpoint", "")
	v.SetDefault("media.s3.access_key", "")
	v.SetDefault("media.s3.secret_key", "")
	v.SetDefault("media.s3.public_base_url", "")

	v.SetDefault("upload.temp_dir", os.TempDir())
	v.SetDefault("upload.max_file_size", int64(5<<20))
	v.SetDefault("upload.allowed_types", []string{"image/png", "image/jpeg", "image/gif", "image/webp"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig reads config.yml from path, then applies environment overrides
// (JWT_ACCESS_SECRET overrides jwt.access_secret and so on). A .env file in
// path is loaded into the environment first when present. A missing
// config.yml is not an error: defaults plus environment are enough.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that would make the service unsafe or
// unable to start.
func (c *Config) Validate() error {
	switch {
	case c.JWT.AccessSecret == "":
		return errors.New("jwt.access_secret is required")
	case c.JWT.RefreshSecret == "":
		return errors.New("jwt.refresh_secret is required")
	case c.JWT.AccessSecret == c.JWT.RefreshSecret:
		return errors.New("jwt.access_secret and jwt.refresh_secret must differ")
	case c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0:
		return errors.New("jwt token lifetimes must be positive")
	case c.Upload.MaxFileSize <= 0:
		return errors.New("upload.max_file_size must be positive")
	}

	switch c.Media.Provider {
	case "cloudinary", "s3":
	default:
		return fmt.Errorf("unknown media.provider %q", c.Media.Provider)
	}
	return nil
}
