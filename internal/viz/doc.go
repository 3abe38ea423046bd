// Package viz renders trajectories and ensemble statistics in the terminal.
//
//   - [PlotTrajectory]: rabbits and foxes over time
//   - [PlotConvergence]: running mean and quartiles of the second peak
//   - [RenderSummary]: styled box with the final ensemble statistics
//
// Plots are drawn with asciigraph; styled text uses lipgloss.
package viz
