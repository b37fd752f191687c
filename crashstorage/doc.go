/*
Package crashstorage saves and loads crash records in an object store.

A crash is stored as independent artifacts keyed by its crash ID. The raw
crash is the client annotation set, every minidump is an opaque blob, the
list of dump names records which blobs exist, and the processed crash is the
output of processing. Exports use the same layout with a different processed
artifact, see the telemetry package.

Below is the layout assuming the filesystem as the storage layer.

	CRASH_ID/
	  raw_crash.json
	  dump_names.json
	  dump
	  content_dump
	  processed_crash.json

Every operation is retried against transient connection failures. A missing
artifact is reported as a *CrashIDNotFound.
*/
package crashstorage
