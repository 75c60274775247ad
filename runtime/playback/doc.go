// Package playback schedules streamed model audio for gapless output.
//
// A Scheduler keeps a cursor on the output clock. Every chunk starts at
// max(cursor, now) and pushes the cursor forward by its own duration, so chunks
// play back to back in arrival order and never start in the past. Flush stops
// everything that is queued or playing and rewinds the cursor, which is how an
// interruption from the model takes effect.
//
// Mixer is the concrete Output: it renders scheduled buffers into a pull-based
// sample stream whose clock is the number of samples rendered so far.
package playback
