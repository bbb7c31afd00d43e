// Package config loads runtime configuration for the authkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Environment variables (AUTHCLI_SERVER_URL, AUTHCLI_REQUEST_TIMEOUT).
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string     base URL of the auth server
//	-t duration   per-request timeout
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:3000",
//	  "request_timeout": "5s"
//	}
package config
