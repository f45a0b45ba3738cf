// Package passes implements the elaboration passes of the architecture core:
// routing resource completion, finalization and bit-chain configuration
// injection. They are meant to be sequenced with package flow.
//
package passes

import "strconv"

func itoa(i int) string { return strconv.Itoa(i) }
