// Package config loads and validates YAML configuration for the
// pipeline commands.
//
// Configuration is read from a single YAML file. Environment variable
// references like ${POLYGON_API_KEY} are expanded before parsing, so
// secrets can stay out of the file itself. LoadAndValidate is the entry
// point commands should use; it applies defaults for unset fields and
// rejects configs that cannot produce a working pipeline.
package config
