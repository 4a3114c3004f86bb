// Package sim provides the core simulation engine for the paint-mixing plant.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - tank.go: a single tank, its sensors, actuators and per-tick physics
//   - alarm.go: the prioritised alarm set and its set/clear state machine
//   - network.go: the tank topology, processed in topological order
//   - simulator.go: the tick clock that advances every tank in lock-step
//
// # Architecture
//
// Value types (PaintMixture, History) and stateless helpers (ColorModel)
// carry no locks. Each Tank guards its mutable state with a single mutex held
// for the duration of one tick step or one accessor call, never across calls.
// The Simulator owns all tanks; external layers (see the server package) only
// call Tank accessors and mutators.
//
// Sensor and actuator faults are modelled as data (FaultRegistry), not errors:
// a broken channel degrades readings or makes an actuator inert. The only
// errors surfaced by this package are configuration errors at construction.
//
// Alarm transitions are recorded in sim/trace, which has no dependency on sim.
package sim
