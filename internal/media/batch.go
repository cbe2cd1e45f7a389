package media

// MaxBatch is the largest group the gateway accepts in one album send.
const MaxBatch = 10

// Entry is one item inside a delivery batch, with its caption (usually empty).
type Entry struct {
	Item    Item
	Caption string
}

// Batch is a contiguous delivery group of 1..maxBatch entries.
// Final is set only on the batch holding the last item of the whole set.
type Batch struct {
	Entries []Entry
	Final   bool
}

// SplitBatches partitions items into contiguous groups of at most maxBatch,
// attaching caption to exactly one entry: the last item of the whole input,
// regardless of which group it lands in.
//
// Concatenating the returned batches reproduces the input order exactly.
// An empty input yields no batches; callers reject that case before batching.
func SplitBatches(items []Item, caption string, maxBatch int) []Batch {
	if maxBatch <= 0 {
		maxBatch = MaxBatch
	}
	if len(items) == 0 {
		return nil
	}

	out := make([]Batch, 0, (len(items)+maxBatch-1)/maxBatch)
	for i := 0; i < len(items); i += maxBatch {
		end := i + maxBatch
		if end > len(items) {
			end = len(items)
		}

		entries := make([]Entry, 0, end-i)
		for j := i; j < end; j++ {
			e := Entry{Item: items[j]}
			if j == len(items)-1 {
				e.Caption = caption
			}
			entries = append(entries, e)
		}
		out = append(out, Batch{Entries: entries, Final: end == len(items)})
	}
	return out
}
