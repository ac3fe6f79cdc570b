package termbuf

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// wordIndex is an inverted index from lowercased words to the sequence
// numbers of the lines containing them. Posting lists are append-only and
// ascending; entries referring to evicted lines are pruned lazily during
// lookup and in bounded passes from the maintenance timer, never eagerly on
// every eviction.
type wordIndex struct {
	postings map[string][]uint64
	words    int
}

func newWordIndex() *wordIndex {
	return &wordIndex{postings: make(map[string][]uint64)}
}

// add indexes every word of text under seq. Word boundaries follow
// UAX #29 so CJK and punctuation-adjacent words index correctly.
func (ix *wordIndex) add(seq uint64, text string) {
	state := -1
	rest := text
	for len(rest) > 0 {
		var word string
		word, rest, state = uniseg.FirstWordInString(rest, state)
		w := normalizeWord(word)
		if w == "" {
			continue
		}
		list := ix.postings[w]
		if len(list) == 0 {
			ix.words++
		}
		// A word repeated within one line indexes once.
		if len(list) > 0 && list[len(list)-1] == seq {
			continue
		}
		ix.postings[w] = append(list, seq)
	}
}

// lookup returns the sequence numbers >= minSeq for word, pruning the stale
// prefix of the posting list in place.
func (ix *wordIndex) lookup(word string, minSeq uint64) []uint64 {
	w := normalizeWord(word)
	if w == "" {
		return nil
	}
	list, ok := ix.postings[w]
	if !ok {
		return nil
	}
	live := pruneBefore(list, minSeq)
	if len(live) == 0 {
		delete(ix.postings, w)
		ix.words--
		return nil
	}
	ix.postings[w] = live
	return live
}

// compact prunes stale postings across the whole index in one bounded pass.
// Called from the maintenance queue; cost is proportional to the number of
// distinct words, never to total history.
func (ix *wordIndex) compact(minSeq uint64) {
	for w, list := range ix.postings {
		live := pruneBefore(list, minSeq)
		if len(live) == 0 {
			delete(ix.postings, w)
			ix.words--
			continue
		}
		ix.postings[w] = live
	}
}

// clear drops the whole index.
func (ix *wordIndex) clear() {
	ix.postings = make(map[string][]uint64)
	ix.words = 0
}

// pruneBefore drops leading entries below minSeq. Lists are ascending, so
// a binary search bounds the cut point.
func pruneBefore(list []uint64, minSeq uint64) []uint64 {
	lo, hi := 0, len(list)
	for lo < hi {
		mid := (lo + hi) / 2
		if list[mid] < minSeq {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return list[lo:]
}

// normalizeWord lowercases a token; tokens without at least one letter or
// digit (whitespace, bare punctuation) are not indexed.
func normalizeWord(word string) string {
	w := strings.ToLower(strings.TrimSpace(word))
	for _, r := range w {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return w
		}
	}
	return ""
}
