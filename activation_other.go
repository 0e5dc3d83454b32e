//go:build !darwin

package main

// HideFromDock only matters on macOS.
func HideFromDock() {}
