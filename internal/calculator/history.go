package calculator

// MaxHistory is the number of history entries kept per session.
const MaxHistory = 20

// HistoryEntry records one successful evaluation. Entries are never mutated
// after creation.
type HistoryEntry struct {
	Expression string  `json:"expression"`
	Result     string  `json:"result"`
	Value      float64 `json:"value"`
}

// prependHistory returns a new slice with e at the front, dropping the oldest
// entries beyond MaxHistory. The input slice is left untouched.
func prependHistory(history []HistoryEntry, e HistoryEntry) []HistoryEntry {
	n := len(history)
	if n >= MaxHistory {
		n = MaxHistory - 1
	}

	out := make([]HistoryEntry, 0, n+1)
	out = append(out, e)
	out = append(out, history[:n]...)
	return out
}
