// Package newsletter implements newsletter CRUD, scheduling and the status
// bookkeeping used by the sending worker.
//
// Status is not a state machine: any status may be written directly with
// SetStatus. Schedule and SendNow are conveniences that set SCHEDULED with a
// send time; the mailing scheduler picks due newsletters up from ListDue.
package newsletter
