package summarizer

import (
	"context"
	"sync"
	"time"
)

// FetchResult is the outcome of one link in FetchMany
type FetchResult struct {
	Link     string
	Video    Video
	Err      error
	Duration time.Duration
}

// FetchMany fetches several links with at most workers in flight. Results
// keep the order of links.
func (s *Service) FetchMany(ctx context.Context, links []string, workers int) []FetchResult {
	if len(links) == 0 {
		return []FetchResult{}
	}
	if workers < 1 {
		workers = 1
	}
	if len(links) < workers {
		workers = len(links)
	}

	jobs := make(chan int, len(links))
	results := make([]FetchResult, len(links))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				start := time.Now()
				v, err := s.FetchVideo(ctx, links[idx])
				results[idx] = FetchResult{
					Link:     links[idx],
					Video:    v,
					Err:      err,
					Duration: time.Since(start),
				}
			}
		}()
	}

	for i := range links {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
