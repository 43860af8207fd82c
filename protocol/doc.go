// Package protocol implements the subset of the Redis Serialization
// Protocol (RESP) needed by a pub/sub subscriber: an incremental decoder
// for the inbound event stream, a writer for composing protocol values,
// and an encoder for outbound subscription commands.
//
// The decoder is resumable. Network reads deliver bytes in arbitrary
// fragments, so values are buffered until complete:
//
//	dec := protocol.NewDecoder()
//	for {
//		n, err := conn.Read(buf)
//		if err != nil {
//			break
//		}
//		dec.Feed(buf[:n])
//		values, err := dec.Decode()
//		// Process values; err reports unrecoverable garbage
//	}
//
// The package supports the RESP data types used by the pub/sub surface:
//   - Simple Strings
//   - Errors
//   - Integers
//   - Bulk Strings
//   - Arrays
//   - Null values ($-1)
package protocol
