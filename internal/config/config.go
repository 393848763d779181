package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/pdf-tools/internal/logx"
	"github.com/a3tai/pdf-tools/internal/pdf/ocr"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultJobTTL      = time.Hour
	DefaultMaxJobs     = 4
	DefaultOCRLanguage = "eng"

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "PDF_TOOLS"
)

// ErrVersionRequested is returned by LoadFromFlags when --version is on the command line
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the pdf-tools server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int
	// Browser origins allowed to call the HTTP API, none when empty
	AllowedOrigins []string

	// Input root for path based tools and where results are written
	PDFDirectory    string
	OutputDirectory string

	// Jobs
	RedisURL string
	JobTTL   time.Duration
	MaxJobs  int

	OCRLanguage string

	// Application configuration
	Version     string
	Commit      string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum input file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:         ModeStdio, // Default to stdio mode for MCP compatibility
		Host:         DefaultHost,
		Port:         DefaultPort,
		PDFDirectory: currentDir,
		JobTTL:       DefaultJobTTL,
		MaxJobs:      DefaultMaxJobs,
		OCRLanguage:  DefaultOCRLanguage,
		Version:      "1.0.0",
		Commit:       "none",
		ServerName:   "pdf-tools",
		LogLevel:     DefaultLogLevel,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and environment and returns a validated configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if checkVersionFlag(os.Args[1:]) {
		return nil, ErrVersionRequested
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}
	if cfg.OutputDirectory == "" && cfg.PDFDirectory != "" {
		cfg.OutputDirectory = filepath.Join(cfg.PDFDirectory, "output")
	}
	if cfg.OutputDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.OutputDirectory); err == nil {
			cfg.OutputDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.PDFDirectory)
	viper.SetDefault("outdir", cfg.OutputDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("redis", cfg.RedisURL)
	viper.SetDefault("jobttl", cfg.JobTTL)
	viper.SetDefault("maxjobs", cfg.MaxJobs)
	viper.SetDefault("ocrlang", cfg.OCRLanguage)
	viper.SetDefault("origins", cfg.AllowedOrigins)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP API and MCP over HTTP")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.PDFDirectory, "Directory path based tools read their inputs from")
	pflag.String("outdir", cfg.OutputDirectory, "Directory tool results are written to (default <dir>/output)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (trace, debug, info, warn, error, none)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum input file size in bytes")
	pflag.String("redis", cfg.RedisURL, "Redis address or URL for the job store (in-memory when empty)")
	pflag.Duration("jobttl", cfg.JobTTL, "How long job state and results are kept")
	pflag.Int("maxjobs", cfg.MaxJobs, "Maximum number of jobs processed at once")
	pflag.String("ocrlang", cfg.OCRLanguage, "Default OCR language, e.g. eng or eng+fra")
	pflag.StringSlice("origins", cfg.AllowedOrigins, "Comma separated CORS origins for the HTTP API, e.g. http://localhost:5173")
	pflag.Bool("version", false, "Print version information and exit")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "outdir", "loglevel", "maxfilesize", "redis", "jobttl", "maxjobs", "ocrlang", "origins",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\npdf-tools - PDF toolkit over MCP and HTTP\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/pdfs                      "+
			"# stdio mode with custom directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/path/to/pdfs        # HTTP API and MCP\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --redis=redis://cache:6379/0 # shared job store\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		for _, name := range []string{"MODE", "HOST", "PORT", "DIR", "OUTDIR", "LOGLEVEL", "MAXFILESIZE",
			"REDIS", "JOBTTL", "MAXJOBS", "OCRLANG", "ORIGINS"} {
			fmt.Fprintf(os.Stderr, "  %s_%s\n", envPrefix, name)
		}
	}
}

// checkVersionFlag reports whether a version flag was requested
func checkVersionFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return true
		}
	}
	return false
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.PDFDirectory = viper.GetString("dir")
	cfg.OutputDirectory = viper.GetString("outdir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.RedisURL = viper.GetString("redis")
	cfg.JobTTL = viper.GetDuration("jobttl")
	cfg.MaxJobs = viper.GetInt("maxjobs")
	cfg.OCRLanguage = viper.GetString("ocrlang")
	cfg.AllowedOrigins = splitList(viper.GetStringSlice("origins"))
}

// splitList flattens comma separated entries, env values arrive as one string
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks if the configuration is valid and creates missing directories
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.PDFDirectory == "" {
		return errors.New("PDF directory cannot be empty")
	}
	if err := ensureDir(c.PDFDirectory); err != nil {
		return err
	}
	if c.OutputDirectory != "" {
		if err := ensureDir(c.OutputDirectory); err != nil {
			return err
		}
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.MaxJobs <= 0 {
		return errors.New("maximum concurrent jobs must be positive")
	}
	if c.JobTTL <= 0 {
		return errors.New("job TTL must be positive")
	}

	if !logx.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: trace, debug, info, warn, error, none)", c.LogLevel)
	}

	if _, err := ocr.ParseLanguage(c.OCRLanguage); err != nil {
		return err
	}

	return nil
}

func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug" || c.LogLevel == "trace" || c.LogLevel == "all"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	redis := "memory"
	if c.RedisURL != "" {
		redis = "redis"
	}
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, PDFDirectory: %s, OutputDirectory: %s, "+
		"LogLevel: %s, MaxFileSize: %d, JobStore: %s, JobTTL: %s, MaxJobs: %d, OCRLanguage: %s}",
		c.Mode, c.Host, c.Port, c.PDFDirectory, c.OutputDirectory,
		c.LogLevel, c.MaxFileSize, redis, c.JobTTL, c.MaxJobs, c.OCRLanguage)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
