package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zata-zhangtao/transFileServer/internal/logging"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"

	defaultConfigPath = "./config.yaml"
	redacted          = "***"
)

type Config struct {
	ListenAddr     string     `yaml:"listen_addr" json:"listen_addr"`
	MetaDSN        string     `yaml:"meta_dsn" json:"meta_dsn"`
	ObjectsDir     string     `yaml:"objects_dir" json:"objects_dir"`
	StagingDir     string     `yaml:"staging_dir" json:"staging_dir"`
	Blob           BlobConfig `yaml:"blob" json:"blob"`
	MaxUploadBytes int64      `yaml:"max_upload_bytes" json:"max_upload_bytes"`
	GC             GCConfig   `yaml:"gc" json:"gc"`
	LogLevel       string     `yaml:"log_level" json:"log_level"`
	LogFormat      string     `yaml:"log_format" json:"log_format"`
}

// BlobConfig выбирает бэкенд для байтов объектов.
type BlobConfig struct {
	Backend string   `yaml:"backend" json:"backend"`
	S3      S3Config `yaml:"s3" json:"s3"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket" json:"bucket"`
	Region    string `yaml:"region" json:"region"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	Prefix    string `yaml:"prefix" json:"prefix"`
}

// GCConfig — очистка брошенных chunked-загрузок. Нулевой интервал отключает фоновый GC.
type GCConfig struct {
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// Default возвращает конфигурацию, с которой сервис запускается без файла.
func Default() Config {
	return Config{
		ListenAddr:     ":8000",
		MetaDSN:        "sqlite://data/meta.db",
		ObjectsDir:     "data/uploads",
		StagingDir:     "data/temp_chunks",
		Blob:           BlobConfig{Backend: BackendLocal},
		MaxUploadBytes: 10 << 30,
		GC: GCConfig{
			TTL:      24 * time.Hour,
			Interval: time.Hour,
		},
		LogLevel:  "info",
		LogFormat: logging.FormatText,
	}
}

// Load читает YAML-конфигурацию, применяет ENV-переопределения и возвращает актуальную структуру.
// Без CONFIG_PATH отсутствие ./config.yaml не ошибка: берутся значения по умолчанию.
func Load() (*Config, error) {
	c := Default()

	path := os.Getenv("CONFIG_PATH")
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Config) applyEnv() error {
	// ENV override
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.MetaDSN, "META_DSN")
	setString(&c.ObjectsDir, "OBJECTS_DIR")
	setString(&c.StagingDir, "STAGING_DIR")
	setString(&c.Blob.Backend, "BLOB_BACKEND")
	setString(&c.Blob.S3.Bucket, "S3_BUCKET")
	setString(&c.Blob.S3.Region, "S3_REGION")
	setString(&c.Blob.S3.Endpoint, "S3_ENDPOINT")
	setString(&c.Blob.S3.AccessKey, "S3_ACCESS_KEY")
	setString(&c.Blob.S3.SecretKey, "S3_SECRET_KEY")
	setString(&c.Blob.S3.Prefix, "S3_PREFIX")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")

	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		c.MaxUploadBytes = n
	}
	if v := os.Getenv("GC_TTL_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GC_TTL_HOURS: %w", err)
		}
		c.GC.TTL = time.Duration(n) * time.Hour
	}
	if v := os.Getenv("GC_INTERVAL_MIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GC_INTERVAL_MIN: %w", err)
		}
		c.GC.Interval = time.Duration(n) * time.Minute
	}

	return nil
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	if strings.TrimSpace(c.StagingDir) == "" {
		errs = append(errs, errors.New("staging_dir is required"))
	}
	switch c.Blob.Backend {
	case BackendLocal:
		if strings.TrimSpace(c.ObjectsDir) == "" {
			errs = append(errs, errors.New("objects_dir is required for the local backend"))
		}
		if sameDir(c.ObjectsDir, c.StagingDir) {
			errs = append(errs, errors.New("objects_dir and staging_dir must differ"))
		}
	case BackendS3:
		if strings.TrimSpace(c.Blob.S3.Bucket) == "" {
			errs = append(errs, errors.New("blob.s3.bucket is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob backend %q", c.Blob.Backend))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max_upload_bytes must be > 0"))
	}
	if c.GC.TTL < 0 || c.GC.Interval < 0 {
		errs = append(errs, errors.New("gc durations must not be negative"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if !logging.ValidFormat(c.LogFormat) {
		errs = append(errs, fmt.Errorf("invalid log_format %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// Redacted возвращает копию без секретов; её отдаёт /admin/config.
func (c Config) Redacted() Config {
	if c.Blob.S3.AccessKey != "" {
		c.Blob.S3.AccessKey = redacted
	}
	if c.Blob.S3.SecretKey != "" {
		c.Blob.S3.SecretKey = redacted
	}
	if i := strings.Index(c.MetaDSN, "@"); i >= 0 {
		if j := strings.Index(c.MetaDSN, "://"); j >= 0 && j < i {
			c.MetaDSN = c.MetaDSN[:j+3] + redacted + c.MetaDSN[i:]
		}
	}
	return c
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
