// Package config manages the agent settings file.
//
// The settings are YAML and live in the platform configuration directory:
//   - Linux: $XDG_CONFIG_HOME/onebiot/config.yaml or $HOME/.config/onebiot/config.yaml
//   - macOS: $HOME/.config/onebiot/config.yaml
//   - Windows: %LOCALAPPDATA%\onebiot\config.yaml
//
// A missing file is not an error; Default() is used instead. Durations are
// written as Go duration strings ("20s", "500ms").
//
//	settings, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	settings.HTTP.Port = 8080
//	path, err := settings.Save("")
//
// Save validates before writing and replaces the file atomically.
package config
