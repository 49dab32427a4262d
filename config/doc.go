// Package config loads the proxy configuration from the serve command's
// flags, WORKERPROXY_* environment variables and an optional YAML file,
// validates it, and builds the worker registry. When a file is used it can
// be watched for changes to the reloadable settings.
package config
