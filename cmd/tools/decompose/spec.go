package main

import (
	"fmt"

	"github.com/soltixdb/decompose/internal/timeseries"
	"github.com/spf13/viper"
)

// loadModelSpec reads a component tree from a YAML or JSON file. The tree
// may sit at the top level or under a "model" key.
func loadModelSpec(path string) (timeseries.ModelSpec, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return timeseries.ModelSpec{}, fmt.Errorf("failed to read model file: %w", err)
	}

	var spec timeseries.ModelSpec
	var err error
	if v.IsSet("model") {
		err = v.UnmarshalKey("model", &spec)
	} else {
		err = v.Unmarshal(&spec)
	}
	if err != nil {
		return timeseries.ModelSpec{}, fmt.Errorf("failed to decode model file: %w", err)
	}
	if spec.Type == "" {
		return timeseries.ModelSpec{}, fmt.Errorf("model file %s has no type", path)
	}
	return spec, nil
}
