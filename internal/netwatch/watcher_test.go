package netwatch

import (
	"fmt"
	"testing"
	"time"
)

func obsFor(url string) Observation {
	return Observation{At: time.Now(), URL: url, Status: 200, Keys: FromURL(url)}
}

func TestRecentNewestFirst(t *testing.T) {
	w := NewWatcher(8)
	for i := 1; i <= 3; i++ {
		w.add(obsFor(fmt.Sprintf("https://mail.example.com/api/drafts/draft-%d/save", i)))
	}

	got := w.Recent(0)
	if len(got) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(got))
	}
	if got[0].Keys[0].Value != "draft-3" || got[2].Keys[0].Value != "draft-1" {
		t.Errorf("expected newest first, got %v then %v", got[0].Keys, got[2].Keys)
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	w := NewWatcher(2)
	for i := 1; i <= 5; i++ {
		w.add(obsFor(fmt.Sprintf("https://mail.example.com/api/drafts/draft-%d/save", i)))
	}

	got := w.Recent(0)
	if len(got) != 2 {
		t.Fatalf("ring must retain exactly its capacity, got %d", len(got))
	}
	if got[0].Keys[0].Value != "draft-5" || got[1].Keys[0].Value != "draft-4" {
		t.Errorf("expected the two newest entries, got %v and %v", got[0].Keys, got[1].Keys)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	w := NewWatcher(8)
	for i := 1; i <= 5; i++ {
		w.add(obsFor(fmt.Sprintf("https://mail.example.com/api/drafts/draft-%d/save", i)))
	}
	if got := w.Recent(2); len(got) != 2 {
		t.Errorf("expected 2 observations, got %d", len(got))
	}
}

func TestForKeyFiltersByValue(t *testing.T) {
	w := NewWatcher(8)
	w.add(obsFor("https://mail.example.com/api/thread/0011223344aabbcc/archive"))
	w.add(obsFor("https://mail.example.com/api/drafts/draft-2/save"))
	w.add(obsFor("https://mail.example.com/api/thread/0011223344aabbcc/label/done"))

	got := w.ForKey("0011223344AABBCC")
	if len(got) != 2 {
		t.Fatalf("expected 2 matching observations, got %d", len(got))
	}
	for _, obs := range got {
		found := false
		for _, key := range obs.Keys {
			if key.Value == "0011223344aabbcc" {
				found = true
			}
		}
		if !found {
			t.Errorf("observation does not reference the key: %+v", obs)
		}
	}

	if got := w.ForKey(""); got != nil {
		t.Errorf("empty key must match nothing, got %v", got)
	}
}
