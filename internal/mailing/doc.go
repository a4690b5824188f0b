// Package mailing renders scheduled newsletters and delivers them through
// Amazon SES.
//
// The Scheduler polls for SCHEDULED newsletters whose time has come, sends
// each one to the owner's subscribers (narrowed by the newsletter's segment
// tags when set) and marks it SENT or FAILED. Only one scheduler instance
// works at a time; the others skip the tick while the lock is held. A
// newsletter is claimed before sending, so it goes out at most once.
package mailing
