// Package normalisers provides implementations of the Normaliser interface
// for various document formats. Each normaliser knows how to extract text
// and, where the format has them, tables and image references.
//
// Registry dispatches on MIME type; Default registers every built-in
// normaliser.
package normalisers
