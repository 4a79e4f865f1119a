// Package ui is the Bubble Tea terminal overlay.
//
// The model receives snapshots from a store subscription and renders the
// hand and battlefield lists beside a detail pane for the selected card:
// name, identity key, effective art and its position among the known prints,
// and 17Lands draft stats when enabled. Art commands go through a Commander
// and their effect arrives with the next snapshot.
//
// Theme and stats visibility are saved to prefs when toggled.
package ui
