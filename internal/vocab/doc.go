// Package vocab implements the cross-session vocabulary bank: an ordered,
// deduplicated collection of saved words with constant-time membership
// checks.
package vocab
