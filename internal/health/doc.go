// Package health provides composable probes for liveness and readiness and
// the plain-text HTTP handler both listeners use to expose them.
//
// [ShutdownGate] fails readiness as soon as draining starts so the load
// balancer stops routing new visitors before the listeners close.
package health
