// Package startup handles application configuration loading, directory
// validation, and structured startup/shutdown logging.
//
// Configuration comes from environment variables (with optional .env file
// support); derived paths such as the preview cache directory are computed
// here so every other package receives a fully validated Config.
package startup
