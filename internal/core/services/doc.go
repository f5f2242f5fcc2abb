// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The pipeline resolves connectors, models and stores through an injected
// PluginRegistry; it never constructs adapters directly.
package services
