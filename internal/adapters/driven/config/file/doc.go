// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//
// Recognised configuration keys:
//   - data.root: project root directory (default ~/allan)
//   - download.parallelism: concurrent downloads for batch operations
//   - download.max_retries: attempts per download
//   - download.rate_limit: outgoing requests per second
//   - monitor.warning_percent: disk usage warning threshold
//   - monitor.critical_percent: disk usage critical threshold
package file
