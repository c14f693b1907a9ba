// internal/dsa/constants.go
package dsa

import "time"

// Deployment timing constants.
// These values are flight-locked and MUST NOT be configurable.
// NOTE: the watchdog kills unresponsive processes after 45 seconds, so no
// single blocking call below may exceed that.

// ---- RELEASE ----

// ReleaseTimeout bounds one release attempt.
const ReleaseTimeout = 15 * time.Second

// ReleaseWait is the pause before the single release retry.
const ReleaseWait = 5 * time.Second

// EmergencyReleaseTimeout bounds the final release attempt.
const EmergencyReleaseTimeout = 15 * time.Second

// ---- DEPLOY ----

// DeployTimeout bounds one deploy attempt.
const DeployTimeout = 10 * time.Second

// ---- PACING ----

// OpWait is the hardware settling pause between operations.
const OpWait = 1 * time.Second

// ---- INITIAL DEPLOYMENT ----

// InitialDeployDelay is how long after first boot the sequence starts.
// Arrays deploy before the antennae to avoid obstruction.
const InitialDeployDelay = 30 * time.Minute

// ---- IDLE MODE ----

// IdleThreshold is the command inactivity after which the card goes idle.
const IdleThreshold = 5 * time.Minute

// IdleCheckInterval is how often inactivity is evaluated.
const IdleCheckInterval = 60 * time.Second

// ---- MANUAL COMMANDS ----

// MaxCommandTimeout caps operator-supplied timeouts so a manual command
// stays inside the watchdog budget.
const MaxCommandTimeout = 30 * time.Second

// ---- CLIENTS ----

// TimeoutPadding is added by query-channel clients on top of the command
// timeout while waiting for the server's response.
const TimeoutPadding = 3 * time.Second

// ---- DEFAULT SENTINEL PATHS ----

// DefaultDeployDelayFile overrides InitialDeployDelay for testing.
// It is removed before launch.
const DefaultDeployDelayFile = "/data/debug/deployDelay"

// DefaultIdleDisableFile disables idle mode for the boot when present.
const DefaultIdleDisableFile = "/data/debug/idleDisable"

// WorstCaseSequence is the upper bound of one full initial deployment:
// per appendage 3 release attempts, the retry wait, one deploy and two
// pacing waits, both appendages sequential.
const WorstCaseSequence = 2 * (ReleaseTimeout + ReleaseWait + ReleaseTimeout + EmergencyReleaseTimeout +
	OpWait + DeployTimeout + OpWait)
