// Package subscriber implements the per-user mailing list: CRUD, tag listing
// and CSV export. Bulk import lives in the importer package and writes
// through PutBatch.
package subscriber
