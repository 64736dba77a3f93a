//go:build !tinygo

package core

// debug_read dereferences raw addresses and is only offered on hardware
func registerPlatformCommands() {}
