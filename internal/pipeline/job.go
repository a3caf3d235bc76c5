package pipeline

import "sync"

// Job is the handle returned for scheduled background work. Wait blocks
// until every stage spawned for the job has finished and reports the first
// stage error observed, if any. Callers that only need fire-and-forget
// semantics can drop the handle.
type Job struct {
	wg sync.WaitGroup

	mu  sync.Mutex
	err error
}

// Wait blocks until the job's stages have finished.
func (j *Job) Wait() error {
	j.wg.Wait()
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Job) record(err error) {
	if err == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err == nil {
		j.err = err
	}
}
