// Package sdk declares the surface of the native chat SDK that the
// bridge drives. The SDK owns networking, delivery and persistence; this
// package only describes the objects it hands back and the calls it
// accepts. Package sim provides an in-process implementation.
package sdk
