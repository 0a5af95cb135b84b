// Package capture owns the screen-capture lifecycle: the session state
// machine, the single-slot pending-capture handoff, and the pipeline that
// turns raw frames into stored images.
package capture
