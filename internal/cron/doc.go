// Package cron evaluates 5-field cron expressions and computes next-run
// instants in a job's timezone.
//
// Matching is deliberately brute-force: the next run is found by probing
// minute by minute from the reference instant, bounded at roughly one year.
// Closed-form derivation of the next match is easy to get wrong around DST
// shifts and day-field interplay; linear probing at minute granularity is
// cheap and obviously correct.
package cron
