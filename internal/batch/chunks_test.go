package batch

import (
	"fmt"
	"testing"

	"github.com/staywatch/staywatch/internal/types"
)

func makeJobs(n int) []types.ListingJob {
	jobs := make([]types.ListingJob, n)
	for i := range jobs {
		jobs[i] = types.ListingJob{ListingID: fmt.Sprintf("%d", 1000+i)}
	}
	return jobs
}

func TestChunkJobsSpreadsRemainder(t *testing.T) {
	chunks := ChunkJobs(makeJobs(7), 3)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	want := []int{3, 2, 2}
	for i, chunk := range chunks {
		if len(chunk) != want[i] {
			t.Fatalf("chunk %d: expected %d jobs, got %d", i, want[i], len(chunk))
		}
	}
}

func TestChunkJobsKeepsInputOrder(t *testing.T) {
	jobs := makeJobs(7)
	chunks := ChunkJobs(jobs, 3)

	var flat []types.ListingJob
	for _, chunk := range chunks {
		flat = append(flat, chunk...)
	}
	if len(flat) != len(jobs) {
		t.Fatalf("expected %d jobs after merge, got %d", len(jobs), len(flat))
	}
	for i := range jobs {
		if flat[i].ListingID != jobs[i].ListingID {
			t.Fatalf("position %d: expected %s, got %s", i, jobs[i].ListingID, flat[i].ListingID)
		}
	}
}

func TestChunkJobsEdgeCases(t *testing.T) {
	if chunks := ChunkJobs(nil, 3); chunks != nil {
		t.Fatal("expected nil for empty input")
	}
	if chunks := ChunkJobs(makeJobs(2), 5); len(chunks) != 2 {
		t.Fatalf("expected workers capped at job count, got %d chunks", len(chunks))
	}
	if chunks := ChunkJobs(makeJobs(4), 0); len(chunks) != 1 {
		t.Fatalf("expected a single chunk for zero workers, got %d", len(chunks))
	}
}

func TestNormalizeListingID(t *testing.T) {
	cases := map[string]string{
		"830193102361409290":    "830193102361409290",
		" 123456 ":              "123456",
		"123456.0":              "123456",
		"1.2345678901234568E18": "1234567890123456768",
	}
	for raw, want := range cases {
		got, err := normalizeListingID(raw)
		if err != nil {
			t.Fatalf("normalize %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("normalize %q: expected %s, got %s", raw, want, got)
		}
	}

	for _, raw := range []string{"", "listing_id", "12ab34"} {
		if _, err := normalizeListingID(raw); err == nil {
			t.Fatalf("normalize %q: expected error", raw)
		}
	}
}
