// Package ratelimit holds the server's admission control.
//
// [Window] is a sliding-window limiter per key: at most N events per key in
// any trailing window, with rejected attempts leaving no trace. The site
// uses it to guard specific actions (copying a wallet address, address
// validation). [RedisWindow] is the same policy stored in Redis so several
// instances share one budget per visitor.
//
// [IPLimiter] is a token bucket per client IP over golang.org/x/time/rate.
// It wraps the whole site as a coarse flood guard, evicts idle visitors in
// the background and caps how many visitors it tracks.
//
// None of this protects against distributed floods or bandwidth bills;
// those belong upstream.
package ratelimit
