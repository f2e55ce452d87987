// Package process terminates browser process trees left behind by a
// renderer.
package process
