package api

import (
	"sync"

	"github.com/hyepartners-gmail/message-testing-api/logging"
	"github.com/spf13/viper"
)

type Config struct {
	StorageConfig
	ServerConfig
}

type StorageConfig struct {
	Backend              string // "dynamo" or "memory"
	TableNameMessages    string
	TableNamePairs       string
	TableNameVotes       string
	TableNameDedup       string
	TableNameIdempotency string
	TableNameCounters    string
	IdempotencyTTLHours  int
}

type ServerConfig struct {
	Port int
}

var settingsOnce sync.Once

func ReadConfig() *Config {

	var conf = &Config{
		StorageConfig: StorageConfig{
			Backend:              getStringOrDefault("storage.Backend", "dynamo"),
			TableNameMessages:    viper.GetString("storage.TableNameMessages"),
			TableNamePairs:       viper.GetString("storage.TableNamePairs"),
			TableNameVotes:       viper.GetString("storage.TableNameVotes"),
			TableNameDedup:       viper.GetString("storage.TableNameDedup"),
			TableNameIdempotency: viper.GetString("storage.TableNameIdempotency"),
			TableNameCounters:    viper.GetString("storage.TableNameCounters"),
			IdempotencyTTLHours:  getIntOrDefault("storage.IdempotencyTTLHours", 48),
		},
		ServerConfig: ServerConfig{
			Port: viper.GetInt("server.port"),
		},
	}

	settingsOnce.Do(func() {
		logging.Log.Print("Reading settings!")
	})

	return conf
}

func getIntOrDefault(name string, def int) int {
	if viper.IsSet(name) {
		v := viper.GetInt(name)
		logging.Log.Printf("found '%s' in viper", name)
		return v
	}
	logging.Log.Printf("could not find '%s' in viper! Returning default", name)
	return def
}

func getStringOrDefault(name string, def string) string {
	if viper.IsSet(name) {
		v := viper.GetString(name)
		logging.Log.Printf("found '%s' in viper", name)
		return v
	}
	logging.Log.Printf("could not find '%s' in viper! Returning default", name)
	return def
}
