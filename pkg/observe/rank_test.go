package observe

import "testing"

type rankItem struct {
	id    string
	score float64
}

func rankLess(a, b rankItem) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.id < b.id
}

func TestClassifyAndRank(t *testing.T) {
	items := []rankItem{
		{id: "c", score: 10},
		{id: "a", score: 30},
		{id: "d", score: 5},
		{id: "b", score: 20},
	}

	got := classifyAndRank(items,
		func(r rankItem) bool { return r.score >= 10 },
		rankLess, 0)

	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %d items, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].id != id {
			t.Errorf("got[%d] = %s, want %s", i, got[i].id, id)
		}
	}
}

// Truncation happens after sorting: the survivors are the top of the
// full ranked set, not the first matching arrivals.
func TestClassifyAndRankTruncatesAfterSort(t *testing.T) {
	items := []rankItem{
		{id: "low1", score: 1},
		{id: "low2", score: 2},
		{id: "top", score: 100},
	}

	got := classifyAndRank(items, nil, rankLess, 1)
	if len(got) != 1 {
		t.Fatalf("got %d items, want 1", len(got))
	}
	if got[0].id != "top" {
		t.Errorf("got %s, want top", got[0].id)
	}
}

func TestClassifyAndRankTieBreak(t *testing.T) {
	items := []rankItem{
		{id: "b", score: 10},
		{id: "a", score: 10},
		{id: "c", score: 10},
	}

	got := classifyAndRank(items, nil, rankLess, 0)
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if got[i].id != id {
			t.Errorf("got[%d] = %s, want %s", i, got[i].id, id)
		}
	}
}

func TestClassifyAndRankEmptyInput(t *testing.T) {
	got := classifyAndRank(nil, nil, rankLess, 10)
	if len(got) != 0 {
		t.Errorf("got %d items, want 0", len(got))
	}
}

func TestClassifyAndRankLimitLargerThanSet(t *testing.T) {
	items := []rankItem{{id: "a", score: 1}}
	got := classifyAndRank(items, nil, rankLess, 100)
	if len(got) != 1 {
		t.Errorf("got %d items, want 1", len(got))
	}
}
