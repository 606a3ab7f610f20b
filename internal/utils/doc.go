// Package utils holds the ambient plumbing shared by the command-line entrypoint:
// the Viper configuration loader with dotenv support, the zap logger factory and the
// command context accessor.
package utils
