// Package domain defines the core value types shared across wifiradar:
// observations, emitter records, hidden-network profiles, and events.
//
// Types here are plain data with small helper methods. All derived
// intelligence (stability, movement, classification) lives in the packages
// that compute it; domain only carries the inputs and results.
package domain
