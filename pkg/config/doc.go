// Package config loads pricer settings from a YAML file, .env files and
// FWDMC_* environment variables, in that order of precedence from lowest to
// highest, and builds the logrus logger the rest of the module logs through.
package config
