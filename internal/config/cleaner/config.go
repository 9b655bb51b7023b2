package cleaner_config

import (
	"time"

	"github.com/hyukudan/dripgate/internal/obs"
	pginfra "github.com/hyukudan/dripgate/internal/repository/postgres"
)

type SweepCfg struct {
	Tick          time.Duration `mapstructure:"tick"`
	RetentionDays int           `mapstructure:"retention_days"`
	MetricsAddr   string        `mapstructure:"metrics_addr"`
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
	DB    pginfra.Config `mapstructure:"db"`
	Sweep SweepCfg       `mapstructure:"sweep"`
	Log   Log            `mapstructure:"log"`
}
