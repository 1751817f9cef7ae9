// Package config assembles the retrieval layer's settings from defaults,
// layered files, and the environment.
//
// The package is a composition convenience. Clients never read it on
// their own; a caller loads a Config once and hands each section to the
// matching constructor (httpclient, opentargets, ctgov, the storage
// backends, prefetch).
//
// # Layers
//
// A Loader starts from DefaultConfig and merges each layer file over it
// in order. Merging is deep and field by field: a layer that sets only
// registry.page_size leaves every other field alone, including the other
// fields of the registry section. Environment overrides are applied
// last.
//
//	loader := config.NewLoader("/etc/drugscout/base.json", "site.yaml")
//	cfg, err := loader.Load()
//
// # Formats
//
// Layers may be JSON or YAML, told apart by extension. Both use the same
// snake_case key names, so a section can move between formats without
// renaming anything.
//
// # Durations
//
// Duration fields accept Go duration strings plus a day suffix: "30s",
// "250ms", "5d", "1.5d". Plain numbers are read as nanoseconds.
//
// # Environment Overrides
//
// A fixed set of DRUGSCOUT_* variables overrides the merged result, for
// the fields that differ between deployments: endpoints, the storage
// backend and its location, NATS credentials, the cache TTL, and the
// main HTTP knobs. A malformed value fails the load.
//
// # Validation
//
// Each layer document is checked against an embedded JSON Schema before
// merging, which catches misspelled keys and wrong types at the file
// that introduced them. After merging, Config.Validate applies the
// semantic checks of every section. EnableValidation(false) switches
// both off.
package config
