package table

// FindShortestSeparator returns the shortest byte string sep such that
// start < sep <= limit (or start itself, if no shorter separator
// exists), using the canonical bytewise-comparator algorithm: it
// increments the first differing byte of the common prefix, when that
// byte can be incremented without reaching or exceeding limit.
func FindShortestSeparator(start, limit []byte) []byte {
	minLen := len(start)
	if len(limit) < minLen {
		minLen = len(limit)
	}
	diff := 0
	for diff < minLen && start[diff] == limit[diff] {
		diff++
	}
	if diff >= minLen {
		// one is a prefix of the other; no shorter separator exists.
		return append([]byte(nil), start...)
	}
	if start[diff] < 0xff && start[diff]+1 < limit[diff] {
		sep := append([]byte(nil), start[:diff+1]...)
		sep[diff]++
		return sep
	}
	return append([]byte(nil), start...)
}

// FindShortSuccessor returns the shortest byte string succ such that
// key <= succ, by incrementing the first byte that can be incremented
// and truncating there, or returning key unchanged if every byte is
// 0xff.
func FindShortSuccessor(key []byte) []byte {
	for i, b := range key {
		if b != 0xff {
			succ := append([]byte(nil), key[:i+1]...)
			succ[i] = b + 1
			return succ
		}
	}
	return append([]byte(nil), key...)
}
