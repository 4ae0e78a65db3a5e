// Package particlefilter implements a Monte Carlo localization filter that
// tracks a vehicle's 2D pose from noisy velocity/yaw-rate controls and
// range-limited observations of known landmarks.
//
// Each cycle predicts particle motion, scores particles against the
// observations, resamples proportionally to weight and reports the
// highest-weight particle as the current estimate.
package particlefilter
