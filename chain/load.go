package chain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// LoadSpec reads a chain specification from the given file. The format is
// derived from the file extension (json, yaml, and toml are supported). The
// loaded spec is validated before being returned.
func LoadSpec(path string) (Spec, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Spec{}, fmt.Errorf("failed to read chain spec %q: %w", path, err)
	}

	var spec Spec
	err := v.Unmarshal(&spec, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return Spec{}, fmt.Errorf("failed to decode chain spec %q: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}
