// Package governance holds runtime safety controls for the omnis API.
//
// The only control today is a per-caller token bucket that throttles workflow
// submissions, since every submission occupies a goroutine for the full
// simulated delay.
package governance
