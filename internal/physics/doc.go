// Package physics provides rate laws for the stochastic simulator.
//
// Each model implements the [dynamo.System] interface, mapping the current
// species counts to the rate of every event that can fire next:
//
//   - [LotkaVolterra]: rabbits breed, foxes eat rabbits and breed, foxes die
//
// Models also implement [dynamo.Configurable] so sweeps and config files can
// adjust the rate constants by name:
//
//	lv := physics.NewLotkaVolterra()
//	if err := lv.SetParam("k3", 0.00004); err != nil {
//	    return err
//	}
package physics
