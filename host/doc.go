// Package host is a minimal application host for tests.
//
// A Host carries the configuration of the application under test. Hooks attached
// to it run once, in order, when the host ignites. Each hook may replace the
// configuration, so later hooks and the application observe its changes. If any
// hook fails the host refuses to ignite and reports every failure.
package host
