// Package live runs a real-time voice or video+voice session against the
// Gemini Live API.
//
// A Controller owns the lifecycle. Start acquires devices and builds one set
// of per-session resources: an Uplink multiplexing capture frames and tool
// responses onto the socket, a Router dispatching every downlink message, a
// playback Scheduler for model audio, and a ToolBridge turning
// generate_image calls into canvas items. Stop tears all of it down and joins
// every goroutine the session started.
package live
