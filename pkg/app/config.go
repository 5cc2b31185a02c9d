package app

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the application specific configuration.
// It is passed to the App.Init function, and is optional.
type Config map[string]interface{}

// BaseConfig contains the base configuration for services, as well as the
// application itself.
type BaseConfig struct {
	LogLevel string `mapstructure:"log_level"`

	AppName string `mapstructure:"app_name"`

	// ListenHost and Port form the address the HTTP server binds to. An empty
	// host listens on all interfaces.
	ListenHost         string `mapstructure:"listen_host"`
	Port               int    `mapstructure:"port"`
	DebugListenAddress string `mapstructure:"debug_listen_address"`

	// TLSCertificate is an optional URL that specified a TLS certificate to be
	// used for the HTTP server. Only local files are supported, with or
	// without the file scheme.
	TLSCertificate string `mapstructure:"tls_certificate"`
	// TLSKey is an optional URL that specifies a TLS Private Key to be used for
	// the HTTP server.
	TLSKey string `mapstructure:"tls_private_key"`

	ReadTimeout         time.Duration `mapstructure:"read_timeout"`
	WriteTimeout        time.Duration `mapstructure:"write_timeout"`
	IdleTimeout         time.Duration `mapstructure:"idle_timeout"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`

	EnablePprof      bool `mapstructure:"enable_pprof"`
	EnableExpvar     bool `mapstructure:"enable_expvar"`
	EnablePrometheus bool `mapstructure:"enable_prometheus"`

	// Ballast for improving Go GC performance. Note that capacity will be
	// limited to 50% of the total memory.
	// https://blog.twitch.tv/en/2019/04/10/go-memory-ballast-how-i-learnt-to-stop-worrying-and-love-the-heap/
	EnableBallast   bool    `mapstructure:"enable_ballast"`
	BallastCapacity float32 `mapstructure:"ballast_capacity"`

	// Periodically terminate the application when there's a memory leak
	EnableMemoryLeakCron   bool   `mapstructure:"enable_memory_leak_cron"`
	MemoryLeakCronSchedule string `mapstructure:"memory_leak_cron_schedule"`

	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	// Arbitrary configuration that the service can define / implement.
	//
	// Users should use mapstructure.Decode for ServiceConfig.
	AppConfig Config `mapstructure:"app"`
}

// ListenAddress is the host:port the HTTP server binds to
func (c BaseConfig) ListenAddress() string {
	return net.JoinHostPort(c.ListenHost, strconv.Itoa(c.Port))
}

func (c BaseConfig) debugEnabled() bool {
	return c.EnablePprof || c.EnableExpvar || c.EnablePrometheus
}

func (c BaseConfig) validate() error {
	if len(c.AppName) == 0 {
		return errors.New("must specify an application name")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	if len(c.TLSCertificate) > 0 && len(c.TLSKey) == 0 {
		return errors.New("tls key must be provided if certificate is specified")
	}
	return nil
}

var defaultConfig = BaseConfig{
	LogLevel: "info",

	AppName: "instruction-server",

	Port:               3000,
	DebugListenAddress: ":8123",

	ReadTimeout:         10 * time.Second,
	WriteTimeout:        10 * time.Second,
	IdleTimeout:         2 * time.Minute,
	ShutdownGracePeriod: 30 * time.Second,

	EnablePprof:      true,
	EnableExpvar:     true,
	EnablePrometheus: true,

	EnableBallast:   true,
	BallastCapacity: 0.333,

	EnableMemoryLeakCron:   false,
	MemoryLeakCronSchedule: "0 5 * * *",
}

func init() {
	bindEnvs()
}

func bindEnvs() {
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	_ = viper.BindEnv("app_name", "APP_NAME")

	_ = viper.BindEnv("listen_host", "LISTEN_HOST")
	_ = viper.BindEnv("port", "PORT")
	_ = viper.BindEnv("debug_listen_address", "DEBUG_LISTEN_ADDRESS")

	_ = viper.BindEnv("tls_certificate", "TLS_CERTIFICATE")
	_ = viper.BindEnv("tls_private_key", "TLS_PRIVATE_KEY")

	_ = viper.BindEnv("read_timeout", "READ_TIMEOUT")
	_ = viper.BindEnv("write_timeout", "WRITE_TIMEOUT")
	_ = viper.BindEnv("idle_timeout", "IDLE_TIMEOUT")
	_ = viper.BindEnv("shutdown_grace_period", "SHUTDOWN_GRACE_PERIOD")

	_ = viper.BindEnv("enable_pprof", "ENABLE_PPROF")
	_ = viper.BindEnv("enable_expvar", "ENABLE_EXPVAR")
	_ = viper.BindEnv("enable_prometheus", "ENABLE_PROMETHEUS")

	_ = viper.BindEnv("enable_ballast", "ENABLE_BALLAST")
	_ = viper.BindEnv("ballast_capacity", "BALLAST_CAPACITY")

	_ = viper.BindEnv("enable_memory_leak_cron", "ENABLE_MEMORY_LEAK_CRON")
	_ = viper.BindEnv("memory_leak_cron_schedule", "MEMORY_LEAK_CRON_SCHEDULE")

	_ = viper.BindEnv("new_relic_license_key", "NEW_RELIC_LICENSE_KEY")
}

// loadConfig layers the optional config file and environment over the
// defaults.
func loadConfig(configPath string) (BaseConfig, error) {
	// viper.ReadInConfig only returns ConfigFileNotFoundError if it has to search
	// for a default config file because one hasn't been explicitly set. That is,
	// if we explicitly set a config file, and it does not exist, viper will not
	// return a ConfigFileNotFoundError, so we do it ourselves.
	if _, err := os.Stat(configPath); err == nil {
		viper.SetConfigFile(configPath)
	} else if !os.IsNotExist(err) {
		return BaseConfig{}, errors.Wrap(err, "failed to check if config exists")
	}

	err := viper.ReadInConfig()
	_, isConfigNotFound := err.(viper.ConfigFileNotFoundError)
	if err != nil && !isConfigNotFound {
		return BaseConfig{}, errors.Wrap(err, "failed to load config")
	}

	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return BaseConfig{}, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := config.validate(); err != nil {
		return BaseConfig{}, err
	}
	return config, nil
}
