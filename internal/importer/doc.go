// Package importer turns an uploaded CSV file into deduplicated, auto-tagged
// subscribers.
//
// An import has two steps. Preview parses the file against the user's
// current list and archives the upload; nothing is written to the list.
// Commit re-parses the archived file against the list as it is at commit
// time and writes the candidates in fixed-size batches, sequentially,
// recording progress after each batch. A failed batch stops the import;
// batches already written stay written.
package importer
