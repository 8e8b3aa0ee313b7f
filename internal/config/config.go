package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Default endpoint and file locations
const (
	DefaultOptionsURL  = "https://cdn.cboe.com/api/global/delayed_quotes/options/{symbol}.json"
	DefaultSymbolsURL  = "https://www.cboe.com/us/options/symboldir/weeklys_options/"
	DefaultSymbolsFile = "meta/symbols.txt"
)

// ReportConfig holds the optional email report settings.
type ReportConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	SMTPHost   string   `mapstructure:"smtp_host"`
	SMTPPort   int      `mapstructure:"smtp_port"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	From       string   `mapstructure:"from"`
	Recipients []string `mapstructure:"recipients"`
}

// Config holds all configuration for the options collector.
type Config struct {
	// Root for hub/, log/ and meta/
	BaseDir string `mapstructure:"base_dir"`

	// Endpoints
	OptionsURL    string `mapstructure:"options_url"`
	SymbolsURL    string `mapstructure:"symbols_url"`
	SymbolsColumn string `mapstructure:"symbols_column"`
	SymbolsFile   string `mapstructure:"symbols_file"`
	LiveSymbols   bool   `mapstructure:"live_symbols"`

	// Execution
	Parallel          bool          `mapstructure:"parallel"`
	Workers           int           `mapstructure:"workers"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	Accept            string        `mapstructure:"accept"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	SkipWeekends      bool          `mapstructure:"skip_weekends"`
	Verbose           bool          `mapstructure:"verbose"`

	Report ReportConfig `mapstructure:"report"`
}

// SymbolsPath returns the symbol cache location resolved against BaseDir
func (c *Config) SymbolsPath() string {
	if filepath.IsAbs(c.SymbolsFile) {
		return c.SymbolsFile
	}
	return filepath.Join(c.BaseDir, c.SymbolsFile)
}

// Load reads configuration from flags, environment variables and an optional
// config file, in that order of precedence.
//
// Environment variables use the OPTIONS_ prefix, with nested keys joined by
// an underscore:
//   - OPTIONS_BASE_DIR
//   - OPTIONS_PARALLEL, OPTIONS_WORKERS
//   - OPTIONS_REPORT_ENABLED
//   - OPTIONS_REPORT_USERNAME, OPTIONS_REPORT_PASSWORD (required when reporting)
//   - OPTIONS_REPORT_FROM, OPTIONS_REPORT_RECIPIENTS (comma separated)
//
// flags may be nil. A "config" flag, when set, names the config file to read.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("OPTIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			// --base-dir binds to base_dir, --report to report.enabled
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "report" {
				key = "report.enabled"
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	configFile := v.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		// Optionally read from config file if it exists
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.optionsfetcher")
		_ = v.ReadInConfig()
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Report.Recipients = splitList(config.Report.Recipients)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_dir", executableDir())
	v.SetDefault("options_url", DefaultOptionsURL)
	v.SetDefault("symbols_url", DefaultSymbolsURL)
	v.SetDefault("symbols_column", "Underlying")
	v.SetDefault("symbols_file", DefaultSymbolsFile)
	v.SetDefault("live_symbols", true)
	v.SetDefault("parallel", false)
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("request_timeout", 100*time.Second)
	v.SetDefault("user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:88.0) Gecko/20100101 Firefox/88.0")
	v.SetDefault("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("skip_weekends", true)
	v.SetDefault("verbose", false)

	// Nested keys need a default to be picked up by AutomaticEnv on Unmarshal
	v.SetDefault("report.enabled", false)
	v.SetDefault("report.smtp_host", "smtp.gmail.com")
	v.SetDefault("report.smtp_port", 465)
	v.SetDefault("report.username", "")
	v.SetDefault("report.password", "")
	v.SetDefault("report.from", "")
	v.SetDefault("report.recipients", []string{})
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	var problems []string

	if c.BaseDir == "" {
		problems = append(problems, "base_dir must be set")
	}
	if !strings.Contains(c.OptionsURL, "{symbol}") {
		problems = append(problems, "options_url must contain {symbol}")
	}
	if c.SymbolsFile == "" {
		problems = append(problems, "symbols_file must be set")
	}
	if c.LiveSymbols && c.SymbolsURL == "" {
		problems = append(problems, "symbols_url must be set when live_symbols is enabled")
	}
	if c.Workers < 1 {
		problems = append(problems, "workers must be at least 1")
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, "request_timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		problems = append(problems, "requests_per_second must not be negative")
	}

	if c.Report.Enabled {
		var missing []string
		if c.Report.SMTPHost == "" {
			missing = append(missing, "OPTIONS_REPORT_SMTP_HOST")
		}
		if c.Report.Username == "" {
			missing = append(missing, "OPTIONS_REPORT_USERNAME")
		}
		if c.Report.Password == "" {
			missing = append(missing, "OPTIONS_REPORT_PASSWORD")
		}
		if c.Report.From == "" {
			missing = append(missing, "OPTIONS_REPORT_FROM")
		}
		if len(c.Report.Recipients) == 0 {
			missing = append(missing, "OPTIONS_REPORT_RECIPIENTS")
		}
		if len(missing) > 0 {
			problems = append(problems, "missing required report configuration: "+strings.Join(missing, ", "))
		}
		if c.Report.SMTPPort <= 0 || c.Report.SMTPPort > 65535 {
			problems = append(problems, "report.smtp_port is out of range")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// splitList flattens comma-separated entries, as delivered by environment variables
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// executableDir returns the directory holding the running binary, falling
// back to the working directory.
func executableDir() string {
	exe, err := os.Executable()
	if err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			return filepath.Dir(resolved)
		}
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}
