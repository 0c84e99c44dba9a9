package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRank_DatasetByRatioThenCollectionOrder(t *testing.T) {
	in := []RawCandidate{
		{Name: "video-1", SourceType: SourceVideo},
		{Name: "A", SourceType: SourceDataset, MatchRatio: 0.9},
		{Name: "web-1", SourceType: SourceWeb},
		{Name: "B", SourceType: SourceDataset, MatchRatio: 0.6},
		{Name: "C", SourceType: SourceDataset, MatchRatio: 0.75},
		{Name: "wiki", SourceType: SourceEncyclopedia},
	}

	assert.Equal(t, []string{"A", "C", "B", "video-1", "web-1", "wiki"}, names(Rank(in)))
}

func TestRank_StableForEqualRatios(t *testing.T) {
	in := []RawCandidate{
		{Name: "first", SourceType: SourceDataset, MatchRatio: 0.5},
		{Name: "second", SourceType: SourceDataset, MatchRatio: 0.5},
	}
	assert.Equal(t, []string{"first", "second"}, names(Rank(in)))
}

func TestDedupe(t *testing.T) {
	in := []RawCandidate{
		{Name: "Phở", SourceType: SourceDataset},
		{Name: "Phở", SourceType: SourceEncyclopedia, SourceURL: "https://vi.wikipedia.org/wiki/Ph%E1%BB%9F"},
		{Name: "phở ", SourceType: SourceEncyclopedia, SourceURL: "https://vi.wikipedia.org/wiki/Other"},
		{Name: "Phở Hà Nội", SourceType: SourceWeb, SourceURL: "https://a.vn/pho"},
		{Name: "Phở Hà Nội (copy)", SourceType: SourceWeb, SourceURL: "https://a.vn/pho"},
		{Name: "Phở", SourceType: SourceDataset},
	}

	got := Dedupe(in)
	assert.Len(t, got, 4)
	assert.Equal(t, SourceEncyclopedia, got[1].SourceType)
	assert.Equal(t, "Phở Hà Nội", got[2].Name)
}

func TestTruncate(t *testing.T) {
	in := make([]RawCandidate, 12)
	assert.Len(t, Truncate(in, 10), 10)
	assert.Len(t, Truncate(in[:3], 10), 3)
}

func TestCitationFor(t *testing.T) {
	tests := []struct {
		name string
		in   RawCandidate
		want Citation
	}{
		{
			name: "dataset",
			in:   RawCandidate{SourceType: SourceDataset},
			want: Citation{SourceName: "Local Recipe Data", SourceType: SourceDataset},
		},
		{
			name: "web strips www",
			in:   RawCandidate{SourceType: SourceWeb, SourceURL: "https://www.dienmayxanh.com/vao-bep/trung"},
			want: Citation{SourceName: "dienmayxanh.com", SourceURL: "https://www.dienmayxanh.com/vao-bep/trung", SourceType: SourceWeb},
		},
		{
			name: "video channel",
			in:   RawCandidate{SourceType: SourceVideo, Channel: "Bếp Nhà", SourceURL: "https://www.youtube.com/watch?v=abc"},
			want: Citation{SourceName: "Bếp Nhà", SourceURL: "https://www.youtube.com/watch?v=abc", IsVideo: true, SourceType: SourceVideo},
		},
		{
			name: "encyclopedia",
			in:   RawCandidate{SourceType: SourceEncyclopedia, SourceURL: "https://vi.wikipedia.org/wiki/Ph%E1%BB%9F"},
			want: Citation{SourceName: "Wikipedia", SourceURL: "https://vi.wikipedia.org/wiki/Ph%E1%BB%9F", SourceType: SourceEncyclopedia},
		},
		{
			name: "ai",
			in:   RawCandidate{SourceType: SourceAI},
			want: Citation{SourceName: "AI Creative Suggestion", SourceType: SourceAI},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CitationFor(tt.in))
		})
	}
}
