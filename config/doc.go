// Package config loads pipedata configuration with Viper.
//
// Values come from, in increasing priority: defaults registered with
// WithDefaults, a YAML file (pipedata.yml, config/pipedata.yml or
// cmd/<name>/config.yml), a .env file loaded with godotenv, and PIPEDATA_*
// environment variables. An environment variable maps onto nested keys by
// its underscores, so PIPEDATA_OUTPUT_MAX_FILE_LENGTH can set
// output.max_file_length.
//
// # Usage
//
//	var cfg ingest.Config
//	if err := config.LoadConfig("pipedata", &cfg, config.WithConfigFile(path)); err != nil {
//	    return err
//	}
package config
