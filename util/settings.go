package util

import (
	"crypto/rand"
	"fmt"
	"reflect"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "HOME_HUB"

var Config = viper.New()

var config_listeners []func()

func RegisterNewConfigListener(new_listener func()) {
	for _, listener := range config_listeners {
		if reflect.ValueOf(new_listener).Pointer() == reflect.ValueOf(listener).Pointer() {
			Logger.Warn().Msg("config listener already registered")
			return
		}
	}
	config_listeners = append(config_listeners, new_listener)
}

func OnNewConfig() {
	for _, listener := range config_listeners {
		listener()
	}
}

func GetRandString(n int) string {
	// using crypto/rand for better security
	const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	for i := range b {
		randBytes := make([]byte, 1)
		if _, err := rand.Read(randBytes); err != nil {
			// fallback to a simple approach if crypto/rand fails
			b[i] = letterBytes[i%len(letterBytes)]
		} else {
			b[i] = letterBytes[int(randBytes[0])%len(letterBytes)]
		}
	}
	return string(b)
}

func setDefaults() {
	Config.SetDefault("Log_level", "info")
	Config.SetDefault("Log_format", "console")
	Config.SetDefault("Broker_URI", "tcp://localhost:1883")
	Config.SetDefault("Cleansess", false)
	Config.SetDefault("Id_base", "home_hub")
	Config.SetDefault("Username", "")
	Config.SetDefault("Password", "")
	Config.SetDefault("Mqtt_enabled", true)
	Config.SetDefault("Topic_prefix", "hab")
	Config.SetDefault("Details_port", 8080)
	Config.SetDefault("Embedded_broker.enabled", false)
	Config.SetDefault("Embedded_broker.address", ":1883")
	Config.SetDefault("Simulation.enabled", true)
	Config.SetDefault("Simulation.frequency", 5)
	Config.SetDefault("Simulation.workers", 2)
}

// SetupConfig loads defaults, the config file, the environment and any flags
// bound from the command line, then watches the file for changes.
func SetupConfig(configFile string, flags *pflag.FlagSet) {
	Config.SetEnvPrefix(ENV_PREFIX)
	Config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults()

	// config file
	if configFile != "" {
		Config.SetConfigFile(configFile)
	} else {
		Config.SetConfigName("home_hub")
		Config.AddConfigPath("/")
		Config.AddConfigPath("./")
		Config.AddConfigPath("./config")
		Config.AddConfigPath("/etc")
		Config.AddConfigPath("/home_hub")
		Config.AddConfigPath("/home_hub/config")
	}

	err := Config.ReadInConfig()
	if err != nil {
		Logger.Error().Msgf("unable to read config file: %v", fmt.Errorf("%v", err))
	}

	// environment variables
	Config.AutomaticEnv()

	// flags
	if flags != nil {
		flags.VisitAll(func(f *pflag.Flag) {
			if err := Config.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
				Logger.Error().Msgf("unable to bind flag %s: %v", f.Name, err)
			}
		})
	}

	// watch for changes
	if Config.ConfigFileUsed() == "" {
		return
	}
	Config.WatchConfig()
	Config.OnConfigChange(func(e fsnotify.Event) {
		Logger.Info().Msgf("Config file changed: %v", e.Name)
		Logger.Debug().Msgf("Config Additional Info: %v", e.String())
		OnNewConfig()
	})
}

// Topic joins parts under the configured topic prefix.
func Topic(parts ...string) string {
	return strings.Join(append([]string{Config.GetString("topic_prefix")}, parts...), "/")
}
