// Package connectors holds the document sources that feed ingestion.
//
// The filesystem connector resolves file:// locations and watches local
// directories, re-ingesting supported files as they change.
package connectors
