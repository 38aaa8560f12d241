// Package frame implements the tabular value returned by warehouse queries
// and built by the pd capability.
//
// A Table is an ordered list of named columns over row-major cells. Column
// order is the order the producer supplied (query result order, record key
// order) and is preserved through every operation, including CSV export.
package frame
