// Package leb128 provides encoders and decoders for the Little Endian Base 128 format.
// The Little Endian Base 128 format is defined in the DWARF v4 standard,
// section 7.6, page 161 and following.
//
// Decoders report malformed input through ErrTruncated and ErrOverflow
// instead of panicking, values wider than 64 bits are rejected at the
// exact bit.
package leb128
