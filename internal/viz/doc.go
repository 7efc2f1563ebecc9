// Package viz renders finished runs in the terminal.
//
//   - [Summary]: a lipgloss panel with the world, final thermo sample,
//     kernel counters and metrics
//   - [Plot]: an asciigraph line plot of one thermo quantity
//   - [Progress]: a [sim.Observer] that draws a progress bar while a run is going
//
// Colors come from a [Theme]; [NewStyles] derives the lipgloss styles.
package viz
