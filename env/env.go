package env

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func init() {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// GetString returns the string value of the given environment variable
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns the int value of the given environment variable
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetFloat64 returns the float64 value of the given environment variable
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetBool returns the bool value of the given environment variable
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// MustGetString returns the string value of the given environment variable and
// panics if it is unset
func MustGetString(key string) string {
	v := viper.GetString(key)
	if v == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return v
}

// SetDefault registers a default for the given environment variable
func SetDefault(key string, value interface{}) {
	viper.SetDefault(key, value)
}
