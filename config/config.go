package config

import (
	"fmt"
	"time"
)

type Configs struct {
	Env string

	Database  DatabaseConfigs
	ApiServer ServerConfigs
	Auth      AuthConfigs
	Redis     RedisConfigs
	Draw      DrawConfigs
}

type DatabaseConfigs struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host string
	Port string

	DefaultLimit int
	MaxLimit     int
}

type AuthConfigs struct {
	TokenSecret string
	AccessToken TokenConfigs
}

type TokenConfigs struct {
	Name       string
	Expiration time.Duration
}

type RedisConfigs struct {
	Addr string
}

type DrawConfigs struct {
	// SelectionSecret enters the winner-selection seed so that outsiders
	// cannot predict outcomes from public draw attributes alone.
	SelectionSecret string

	// SweepInterval is how often the cron sweep looks for expired draws.
	SweepInterval time.Duration

	// ActiveListTTL bounds the redis cache of the active-draw listing.
	ActiveListTTL time.Duration

	// StuckSweepThreshold is the number of consecutive sweeps a draw may stay
	// in closed without a result before it is flagged for operators.
	StuckSweepThreshold int
}
