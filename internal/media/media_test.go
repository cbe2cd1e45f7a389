package media

import "testing"

func TestDeliverable(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://cdn.example.com/v.mp4", true},
		{"http://cdn.example.com/p.jpg", true},
		{"https://x", true},
		{"ftp://cdn.example.com/v.mp4", false},
		{"https://", false},
		{"hello", false},
		{"", false},
	}
	for _, c := range cases {
		if got := Deliverable(c.url); got != c.want {
			t.Fatalf("Deliverable(%q) = %v, want %v", c.url, got, c.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	if KindOf("video") != KindVideo {
		t.Fatalf("mime video must classify as video")
	}
	for _, mime := range []string{"image", "photo", "VIDEO", "", "video/mp4"} {
		if KindOf(mime) != KindImage {
			t.Fatalf("KindOf(%q) = %v, want image", mime, KindOf(mime))
		}
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	in := []Item{
		{URL: "https://a/1", Kind: KindImage},
		{URL: "bogus", Kind: KindVideo},
		{URL: "https://a/2", Kind: KindVideo},
		{URL: "", Kind: KindImage},
		{URL: "http://a/3", Kind: KindImage},
	}
	out := Filter(in)
	if len(out) != 3 {
		t.Fatalf("expected 3 items, got %d", len(out))
	}
	want := []string{"https://a/1", "https://a/2", "http://a/3"}
	for i, u := range want {
		if out[i].URL != u {
			t.Fatalf("item %d: got %q, want %q", i, out[i].URL, u)
		}
	}
}
