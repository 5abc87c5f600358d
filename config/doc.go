// Package config provides the host configuration used by test stands.
//
// Configuration is held in a Tree: an immutable, hierarchical snapshot backed by viper.
// Trees are never modified in place. Focus narrows a tree to a subtree, while Merge and
// WithDefault return new trees layered over the receiver.
//
// # Configuration Precedence
//
// Load resolves values in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (TESTSTAND_ prefix, optionally loaded from .env files)
//  4. CLI flags
//
// # Usage
//
//	tree, err := config.Load([]string{"teststand.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	scoped, err := tree.Focus("databases.test")
//	scoped = scoped.WithDefault("max_connections", 16)
//
// # Configuration Structure
//
//   - workers: host concurrency, used to size database pools (default: number of CPUs)
//   - env: "prod"/"production" switches logging to JSON
//   - log.level: debug, info, warn or error
//   - databases.<name>: one table per logical database (url, max_connections, ...)
package config
