package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharetube/syncroom/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	listenOn = configVar[string]{
		envKey:       "LISTEN_ON",
		flagKey:      "listen-on",
		defaultValue: "",
	}
	logLevel = configVar[string]{
		envKey:       "SERVER_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	tickInterval = configVar[time.Duration]{
		envKey:       "SERVER_TICK_INTERVAL",
		flagKey:      "tick-interval",
		defaultValue: time.Second,
	}
	gracePeriod = configVar[time.Duration]{
		envKey:       "SERVER_GRACE_PERIOD",
		flagKey:      "grace-period",
		defaultValue: 5 * time.Minute,
	}
	updateBuffer = configVar[int]{
		envKey:       "SERVER_UPDATE_BUFFER",
		flagKey:      "update-buffer",
		defaultValue: 128,
	}
	redisAddr = configVar[string]{
		envKey:       "REDIS_ADDR",
		flagKey:      "redis-addr",
		defaultValue: "",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
)

func loadAppConfig() *app.AppConfig {
	pflag.String(listenOn.flagKey, listenOn.defaultValue, "Address to listen on, host:port")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Duration(tickInterval.flagKey, tickInterval.defaultValue, "Interval between position ticks")
	pflag.Duration(gracePeriod.flagKey, gracePeriod.defaultValue, "How long an empty room is kept before it is retired")
	pflag.Int(updateBuffer.flagKey, updateBuffer.defaultValue, "Per-member update buffer size")
	pflag.String(redisAddr.flagKey, redisAddr.defaultValue, "Redis address for the room directory, empty keeps it in memory")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(listenOn.flagKey, listenOn.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(tickInterval.flagKey, tickInterval.envKey)
	viper.BindEnv(gracePeriod.flagKey, gracePeriod.envKey)
	viper.BindEnv(updateBuffer.flagKey, updateBuffer.envKey)
	viper.BindEnv(redisAddr.flagKey, redisAddr.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)

	viper.SetDefault(listenOn.flagKey, listenOn.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(tickInterval.flagKey, tickInterval.defaultValue)
	viper.SetDefault(gracePeriod.flagKey, gracePeriod.defaultValue)
	viper.SetDefault(updateBuffer.flagKey, updateBuffer.defaultValue)
	viper.SetDefault(redisAddr.flagKey, redisAddr.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)

	config := &app.AppConfig{
		ListenOn:      viper.GetString(listenOn.flagKey),
		LogLevel:      viper.GetString(logLevel.flagKey),
		TickInterval:  viper.GetDuration(tickInterval.flagKey),
		GracePeriod:   viper.GetDuration(gracePeriod.flagKey),
		UpdateBuffer:  viper.GetInt(updateBuffer.flagKey),
		RedisAddr:     viper.GetString(redisAddr.flagKey),
		RedisPassword: viper.GetString(redisPassword.flagKey),
	}

	return config
}

func main() {
	ctx := context.Background()

	appConfig := loadAppConfig()
	if err := appConfig.Validate(); err != nil {
		log.Fatal(err)
	}

	jsonConfig, _ := json.MarshalIndent(appConfig, "", "  ")
	fmt.Printf("starting app with config: %s\n", jsonConfig)

	if err := app.Run(ctx, appConfig); err != nil {
		log.Fatal(err)
	}
}
