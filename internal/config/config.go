package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/html5-picture/internal/model"
)

// DefaultPath is read when no --config flag is given. A missing file at the
// default path is not an error.
const DefaultPath = "./config/config.yml"

const envPrefix = "HTML5_PICTURE"

// Config holds the main configuration for the application.
type Config struct {
	Input   Input   `mapstructure:"input"`
	Output  Output  `mapstructure:"output"`
	Encode  Encode  `mapstructure:"encode"`
	Scale   Scale   `mapstructure:"scale"`
	Batch   Batch   `mapstructure:"batch"`
	Picture Picture `mapstructure:"picture"`
	Storage Storage `mapstructure:"storage"`
	Kafka   Kafka   `mapstructure:"kafka"`
	Retry   Retry   `mapstructure:"retry"`
}

// Input holds source discovery configuration.
type Input struct {
	Dir        string   `mapstructure:"dir"`        // Directory containing the source images
	Extensions []string `mapstructure:"extensions"` // Recognised source extensions
}

// Output holds where derivatives and the manifest are written.
type Output struct {
	Dir      string `mapstructure:"dir"`      // Output root; defaults to .<input>-html5picture next to the input
	Manifest string `mapstructure:"manifest"` // Optional YAML manifest path
}

// Encode holds derivative encoding configuration.
type Encode struct {
	Quality int    `mapstructure:"quality"` // 1-100, clamped
	Format  string `mapstructure:"format"`  // webp, jpeg or png
}

// Scale holds derivative planning configuration.
type Scale struct {
	Count int `mapstructure:"count"` // Number of scaled derivatives besides the full-scale one
}

// Batch holds scheduling configuration.
type Batch struct {
	SingleThreaded bool `mapstructure:"single_threaded"` // Process images one by one in input order
	Concurrency    int  `mapstructure:"concurrency"`     // Max images in flight, 0 = unbounded
}

// Picture holds <picture> fragment output configuration.
type Picture struct {
	Dir            string `mapstructure:"dir"`             // Destination of fragment files; empty disables them
	Mountpoint     string `mapstructure:"mountpoint"`      // URI prefix for links in fragments
	ForceOverwrite bool   `mapstructure:"force_overwrite"` // Replace existing fragment files
}

// Storage holds configuration for the optional object storage mirror.
type Storage struct {
	Enabled    bool   `mapstructure:"enabled"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	Prefix     string `mapstructure:"prefix"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for job completion events.
type Kafka struct {
	Enabled bool     `mapstructure:"enabled"`
	Topic   string   `mapstructure:"topic"`   // Kafka topic name
	Brokers []string `mapstructure:"brokers"` // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// EncodeParameters returns the clamped encode settings.
func (c *Config) EncodeParameters() model.EncodeParameters {
	return model.NewEncodeParameters(c.Encode.Quality, model.Format(c.Encode.Format))
}

// OutputDirFor returns the default output root for an input directory:
// a hidden sibling named .<input>-html5picture.
func OutputDirFor(inputDir string) string {
	clean := filepath.Clean(inputDir)
	return filepath.Join(filepath.Dir(clean), "."+filepath.Base(clean)+"-html5picture")
}

// setDefaults registers every key, so that AutomaticEnv can override keys
// that appear in no config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("input.dir", "")
	v.SetDefault("input.extensions", []string{".png"})
	v.SetDefault("output.dir", "")
	v.SetDefault("output.manifest", "")
	v.SetDefault("encode.quality", model.DefaultQuality)
	v.SetDefault("encode.format", string(model.FormatWebP))
	v.SetDefault("scale.count", 0)
	v.SetDefault("batch.single_threaded", false)
	v.SetDefault("batch.concurrency", 0)
	v.SetDefault("picture.dir", "")
	v.SetDefault("picture.mountpoint", "")
	v.SetDefault("picture.force_overwrite", false)
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket_name", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "image-derivatives")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", time.Second)
	v.SetDefault("retry.backoff", 2.0)
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"output":          "output.dir",
	"manifest":        "output.manifest",
	"quality":         "encode.quality",
	"format":          "encode.format",
	"scale":           "scale.count",
	"single-threaded": "batch.single_threaded",
	"concurrency":     "batch.concurrency",
	"picture-dir":     "picture.dir",
	"mountpoint":      "picture.mountpoint",
	"force-overwrite": "picture.force_overwrite",
}

// envKeys binds environment variables that do not follow the prefix scheme.
var envKeys = map[string]string{
	"storage.access_key": "MINIO_ACCESS_KEY",
	"storage.secret_key": "MINIO_SECRET_KEY",
}

// Flags returns the command-line flag set understood by Load.
//
// Usage: html5-picture [flags] <input-dir> [scale-count]
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("html5-picture", pflag.ContinueOnError)
	fs.String("config", DefaultPath, "path to the YAML configuration file")
	fs.StringP("output", "o", "", "output root directory")
	fs.String("manifest", "", "write a YAML manifest of all derivatives to this path")
	fs.IntP("quality", "q", model.DefaultQuality, "encode quality, 1-100")
	fs.String("format", string(model.FormatWebP), "output format: webp, jpeg or png")
	fs.IntP("scale", "s", 0, "number of scaled derivatives per image")
	fs.Bool("single-threaded", false, "process images sequentially")
	fs.IntP("concurrency", "j", 0, "max images processed at once, 0 = unbounded")
	fs.StringP("picture-dir", "p", "", "write <picture> fragments into this directory")
	fs.StringP("mountpoint", "m", "", "URI prefix for links in <picture> fragments")
	fs.BoolP("force-overwrite", "f", false, "overwrite existing <picture> fragments")
	return fs
}

// Load reads configuration from the config file, HTML5_PICTURE_* environment
// variables and the parsed flag set, in increasing precedence. Positional
// arguments are <input-dir> [scale-count]. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	path := DefaultPath
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			path = f.Value.String()
		}
	}
	if err := readFile(v, path, fs != nil && fs.Changed("config")); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
		if err := applyArgs(v, fs.Args()); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Output.Dir == "" && cfg.Input.Dir != "" {
		cfg.Output.Dir = OutputDirFor(cfg.Input.Dir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readFile(v *viper.Viper, path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !explicit {
		return nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return nil
}

func applyArgs(v *viper.Viper, args []string) error {
	if len(args) > 2 {
		return fmt.Errorf("unexpected arguments: %v", args[2:])
	}
	if len(args) > 0 {
		v.Set("input.dir", args[0])
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid scale count %q: %w", args[1], err)
		}
		v.Set("scale.count", n)
	}

	return nil
}

// Validate checks settings that cannot be corrected silently. Quality is not
// checked: it is clamped when building encode parameters.
func (c *Config) Validate() error {
	if c.Input.Dir == "" {
		return errors.New("input directory is required")
	}
	if c.Scale.Count < 0 {
		return fmt.Errorf("scale count must be >= 0, got %d", c.Scale.Count)
	}
	if c.Batch.Concurrency < 0 {
		return fmt.Errorf("concurrency must be >= 0, got %d", c.Batch.Concurrency)
	}
	switch model.Format(c.Encode.Format) {
	case model.FormatWebP, model.FormatJPEG, model.FormatPNG:
	default:
		return fmt.Errorf("unsupported output format %q", c.Encode.Format)
	}
	if c.Storage.Enabled && (c.Storage.Endpoint == "" || c.Storage.BucketName == "") {
		return errors.New("storage endpoint and bucket_name are required when storage is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka brokers are required when kafka is enabled")
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry attempts must be >= 1, got %d", c.Retry.Attempts)
	}

	return nil
}

// MustLoad loads the configuration like Load.
// It panics if the configuration cannot be loaded or is invalid.
func MustLoad(fs *pflag.FlagSet) *Config {
	cfg, err := Load(fs)
	if err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to load config")
	}

	return cfg
}
