// Package config loads the service configuration.
//
// Values come from three layers: built-in defaults, the YAML file, then
// GRAYLOGIC_* environment variables. Load validates the result and
// reports every problem at once.
//
// Keep the gateway token, broker password, InfluxDB token and JWT
// secret out of the file; set them through the environment instead.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
package config
