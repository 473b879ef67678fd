package rrf

import "sort"

// K is the RRF smoothing constant from the canonical formula
// score = Σ 1/(k + rank), which flattens the influence of low ranks.
const K = 60

// RankedItem is one entry in a single source's ranked list. Rank is
// 0-based: the first (best) item in a list has Rank 0.
type RankedItem struct {
	Type       string
	SourcePath string
	Content    string
	Rank       int
	Payload    any
}

// FusedItem is one entry in the RRF-merged output.
type FusedItem struct {
	Type       string
	SourcePath string
	Content    string
	Score      float64
	Payload    any
}

func key(itemType, sourcePath, content string) string {
	snippet := content
	if len(snippet) > 150 {
		snippet = snippet[:150]
	}
	return itemType + "::" + sourcePath + "::" + snippet
}

// Fuse merges any number of ranked lists into one descending-score list.
// An item's Payload is taken from the first occurrence encountered across
// the input lists, in the order given.
func Fuse(lists ...[]RankedItem) []FusedItem {
	scores := make(map[string]float64)
	order := make([]string, 0)
	payload := make(map[string]FusedItem)

	for _, list := range lists {
		for _, item := range list {
			k := key(item.Type, item.SourcePath, item.Content)
			if _, seen := payload[k]; !seen {
				order = append(order, k)
				payload[k] = FusedItem{
					Type:       item.Type,
					SourcePath: item.SourcePath,
					Content:    item.Content,
					Payload:    item.Payload,
				}
			}
			scores[k] += 1.0 / float64(K+item.Rank+1)
		}
	}

	out := make([]FusedItem, 0, len(order))
	for _, k := range order {
		f := payload[k]
		f.Score = scores[k]
		out = append(out, f)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
