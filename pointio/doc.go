// Package pointio reads and writes point catalogs.
//
// # File Format
//
// A catalog stores the three axis arrays of a model.PointSet column by column.
// All integers are little-endian.
//
//	+--------+---------+-------------+----------+----------+
//	| "STPC" | version | compression | reserved | count    |
//	| 4B     | u16     | u8          | u8       | u64      |
//	+--------+---------+-------------+----------+----------+
//	| x block | y block | z block | crc32 (u32)            |
//	+---------+---------+---------+------------------------+
//
// Each block is [uncompressed u32][compressed u32][bytes]. A compressed size
// of 0 means the bytes are stored raw. The raw bytes of an axis are count
// float32 values. The CRC (IEEE) covers the raw bytes of all three axes.
//
// CSV files with "x,y,z" rows are accepted by ReadCSV for import.
package pointio
