// Package constants centralizes configuration defaults shared across the CLI.
//
// File permissions, browser timeouts, sweep batch sizes and link-check limits
// live here so cmd/ and internal/ agree on them without import cycles.
package constants
