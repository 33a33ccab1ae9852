// Package pbkit provides functionality for building exploit payloads
// symbolically and resolving them against multiple target environments.
//
// A payload is described once as a set of named regions containing
// literal bytes and deferred references. The same description can then
// be resolved against any number of target contexts (for example,
// different builds of a vulnerable binary, each with its own gadget
// addresses and saved-return-address offsets), producing concrete
// bytes per context.
//
// APIs are separated into subpackages, and documented accordingly.
//
// For scripting convenience, "OrExit" functions and methods are provided.
// Any errors encountered by these functions are treated as fatal. In such
// cases, an exit handler function is invoked.
package pbkit
