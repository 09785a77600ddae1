// Package config defines the format-agnostic configuration model for the
// application: the project descriptors the menus are built from, their cache
// policies and the global activation options, along with the Loader interface
// implemented by format-specific packages.
//
// The `config.Model` is the single source of truth for the resolver, cache
// and loader packages. Concrete implementations of the Loader, such as for
// HCL, are provided in separate packages.
package config
