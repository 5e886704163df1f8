// Package api contains the core building blocks of the asset lifecycle
// engine: the asset and record data model, the status enums, the error
// taxonomy, lifecycle events, and the service interfaces implemented by
// the engines.
//
// Most users interact with the higher-level assetcycle package, which
// re-exports selected types and helpers from this package. The api package
// is intended for custom integrations, alternative store implementations,
// or contributors extending the engine itself.
package api
