// Package dynamo provides the core primitives for rejection-free kinetic
// Monte Carlo simulation of two-species population models.
//
// The package defines the fundamental interfaces and types:
//
//   - [Population]: discrete rabbit and fox counts
//   - [Sample] and [Trajectory]: the recorded history of one run
//   - [Rates]: the four competing event rates and their ordered partition
//   - [System]: interface for rate laws (rates as a function of counts)
//   - [RandSource]: seedable uniform and exponential draws
//   - [Simulator]: advances one trajectory to the horizon
//   - [Ensemble]: runs many independent trajectories concurrently
//
// # Example
//
//	sys := physics.NewLotkaVolterra()
//	sim := dynamo.New(sys)
//	result, _ := sim.Run(ctx, dynamo.Population{Rabbits: 400, Foxes: 200}, cfg)
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. For parallel runs use
// [Ensemble], which builds one simulator per run through its Factory and
// hands results back in run order.
package dynamo
