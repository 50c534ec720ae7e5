// Package transcoder converts the tag pairs of PGN game records into tabular
// rows.
//
// A Transcoder fixes the column layout for a schema and mode. A RowWriter
// receives record events from a PGN scanner, stages the tag values of the
// current record and writes one row per record to an encoder.RowSink.
//
// In minified mode some tags render as short codes (Result, titles, ECO,
// Termination, Chess960 starting positions), links are reduced to their
// trailing id, and WhiteElo, BlackElo and TimeControl each expand into two
// columns. Every row, including the header, has Transcoder.Columns() values.
package transcoder
