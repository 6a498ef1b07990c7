// Package config holds the runtime settings of the transparency portal agent.
//
// Settings are resolved in layers, later layers winning:
//
//  1. Defaults from NewConfig
//  2. The YAML file (LoadFile), by default under the XDG config directory
//  3. Environment variables (ApplyEnv), optionally read from a .env file
//  4. Command line flags, applied by the caller
//
// Validate is called once after all layers are applied.
package config
