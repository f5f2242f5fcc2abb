// Package file loads the lexsync configuration.
//
// Values are resolved in this order, later sources winning:
//
//   - built-in defaults
//   - the TOML config file (~/.lexsync/config.toml, or the --config path)
//   - LEXSYNC_* environment variables, with dots replaced by underscores
//     (LEXSYNC_STORE_BATCH_SIZE overrides store.batch_size)
//
// The embedding key also falls back to VOYAGE_API_KEY.
package file
