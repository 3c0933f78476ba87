// Package history loads recorded state changes from the active gateway
// for a fixed look-back window and filters them by keyword.
package history
