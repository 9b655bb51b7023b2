package scanner_config

import (
	"time"

	"github.com/hyukudan/dripgate/internal/obs"
	pginfra "github.com/hyukudan/dripgate/internal/repository/postgres"
)

type SMTP struct {
	Addr       string        `mapstructure:"addr"`
	From       string        `mapstructure:"from"`
	User       string        `mapstructure:"user"`
	Password   string        `mapstructure:"password"`
	UseTLS     bool          `mapstructure:"use_tls"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SubjPrefix string        `mapstructure:"subj_prefix"`
}

type ScanCfg struct {
	Tick          time.Duration `mapstructure:"tick"`
	MetricsAddr   string        `mapstructure:"metrics_addr"`
	NotifyEnabled bool          `mapstructure:"notify_enabled"`
	NotifyMethod  string        `mapstructure:"notify_method"`
	SiteName      string        `mapstructure:"site_name"`
	BaseURL       string        `mapstructure:"base_url"`
}

type OTEL struct {
	Enable      bool    `mapstructure:"enable"`
	Endpoint    string  `mapstructure:"otlp_endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.Endpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	Env    string `mapstructure:"env"`
	Ver    string `mapstructure:"ver"`
}

func (lc *Log) AsLoggerConfig(app string) *obs.LogConfig {
	return &obs.LogConfig{
		Level:  lc.Level,
		Pretty: lc.Pretty,
		App:    app,
		Env:    lc.Env,
		Ver:    lc.Ver,
	}
}

type Config struct {
	DB   pginfra.Config `mapstructure:"db"`
	SMTP SMTP           `mapstructure:"smtp"`
	Scan ScanCfg        `mapstructure:"scan"`
	OTEL OTEL           `mapstructure:"otel"`
	Log  Log            `mapstructure:"log"`
}
