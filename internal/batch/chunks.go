package batch

import "github.com/staywatch/staywatch/internal/types"

// ChunkJobs splits jobs into at most workers contiguous chunks, spreading
// the remainder one job at a time over the leading chunks. Seven jobs
// over three workers come out as chunks of 3, 2 and 2. Order within each
// chunk is the input order; there is no ordering across chunks.
func ChunkJobs(jobs []types.ListingJob, workers int) [][]types.ListingJob {
	if len(jobs) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	base := len(jobs) / workers
	remainder := len(jobs) % workers

	chunks := make([][]types.ListingJob, 0, workers)
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < remainder {
			size++
		}
		chunks = append(chunks, jobs[start:start+size])
		start += size
	}
	return chunks
}
