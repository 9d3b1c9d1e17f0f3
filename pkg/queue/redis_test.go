package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	list    [][]byte
	retries map[string]time.Time
	dlq     [][]byte
}

func newMemStore() *memStore { return &memStore{retries: map[string]time.Time{}} }

func (s *memStore) push(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, data)
	return nil
}

func (s *memStore) pop(ctx context.Context, _ time.Duration) ([]byte, error) {
	s.mu.Lock()
	if len(s.list) > 0 {
		d := s.list[0]
		s.list = s.list[1:]
		s.mu.Unlock()
		return d, nil
	}
	s.mu.Unlock()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return nil, nil
	}
}

func (s *memStore) retryAt(_ context.Context, data []byte, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries[string(data)] = at
	return nil
}

func (s *memStore) deadLetter(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dlq = append(s.dlq, data)
	return nil
}

func (s *memStore) promote(_ context.Context, now time.Time, _ int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for d, at := range s.retries {
		if !at.After(now) {
			s.list = append(s.list, []byte(d))
			delete(s.retries, d)
			n++
		}
	}
	return n, nil
}

func (s *memStore) ping(context.Context) error { return nil }

type recordingJob struct {
	mu        sync.Mutex
	errs      []error
	calls     int
	seen      []extractPayload
	exhausted []error
	done      chan struct{}
}

func (j *recordingJob) Name() string { return "record" }
func (j *recordingJob) Type() string { return "birth_extraction" }

func (j *recordingJob) Handle(_ context.Context, payload interface{}) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	p, err := ParsePayload[extractPayload](payload)
	if err != nil {
		return err
	}
	j.seen = append(j.seen, *p)
	if j.calls <= len(j.errs) {
		return j.errs[j.calls-1]
	}
	if j.done != nil {
		close(j.done)
		j.done = nil
	}
	return nil
}

func (j *recordingJob) Exhausted(_ context.Context, _ interface{}, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.exhausted = append(j.exhausted, err)
}

func testQueue(t *testing.T, retries int) (*RedisQueue, *memStore) {
	t.Helper()
	q := newQueue(nil, &QueueConfig{Workers: 1, RetryLimit: retries, RetryDelay: time.Minute}, ModeProducerConsumer)
	st := newMemStore()
	q.st = st
	return q, st
}

func decodeMsg(t *testing.T, data []byte) Message {
	t.Helper()
	var m Message
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestPublishRequiresRunningQueueAndJob(t *testing.T) {
	q, st := testQueue(t, 0)
	ctx := context.Background()

	assert.Error(t, q.PublishMessage(ctx, "birth_extraction", extractPayload{}))

	q.running = true
	assert.Error(t, q.PublishMessage(ctx, "unknown", extractPayload{}))

	q.RegisterJob(&recordingJob{})
	require.NoError(t, q.PublishMessage(ctx, "birth_extraction", extractPayload{JobID: "j1", Text: "x"}))
	require.Len(t, st.list, 1)
	m := decodeMsg(t, st.list[0])
	assert.Equal(t, "birth_extraction", m.Type)
	assert.NotEmpty(t, m.ID)
	assert.JSONEq(t, `{"job_id":"j1","text":"x","save":false}`, string(m.Payload))
}

func TestProcessSchedulesRetryThenDeadLetters(t *testing.T) {
	q, st := testQueue(t, 1)
	now := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }
	job := &recordingJob{errs: []error{errors.New("llm timeout"), errors.New("llm timeout again")}}
	q.RegisterJob(job)
	q.running = true

	require.NoError(t, q.PublishMessage(context.Background(), "birth_extraction", extractPayload{JobID: "j1"}))
	first := st.list[0]
	st.list = nil

	q.process(first)
	require.Len(t, st.retries, 1)
	var retried []byte
	for d, at := range st.retries {
		retried = []byte(d)
		assert.Equal(t, now.Add(time.Minute), at)
	}
	m := decodeMsg(t, retried)
	assert.Equal(t, 1, m.Attempts)
	assert.Equal(t, "llm timeout", m.LastError)
	assert.Empty(t, job.exhausted)

	q.process(retried)
	require.Len(t, st.dlq, 1)
	dead := decodeMsg(t, st.dlq[0])
	assert.Equal(t, 2, dead.Attempts)
	require.Len(t, job.exhausted, 1)
	assert.EqualError(t, job.exhausted[0], "llm timeout again")
	assert.Equal(t, 2, job.calls)
}

func TestProcessDeadLettersUnknownAndGarbage(t *testing.T) {
	q, st := testQueue(t, 3)

	b, err := json.Marshal(Message{ID: "m1", Type: "nope", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	q.process(b)
	q.process([]byte("not json"))

	assert.Len(t, st.dlq, 2)
	assert.Empty(t, st.retries)
}

type panicJob struct{ recordingJob }

func (p *panicJob) Handle(context.Context, interface{}) error { panic("boom") }

func TestProcessRecoversPanics(t *testing.T) {
	q, st := testQueue(t, 0)
	q.RegisterJob(&panicJob{})
	b, err := json.Marshal(Message{ID: "m1", Type: "birth_extraction", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)

	q.process(b)
	require.Len(t, st.dlq, 1)
	assert.Contains(t, decodeMsg(t, st.dlq[0]).LastError, "job panic")
}

func TestWorkersDrainQueue(t *testing.T) {
	q, _ := testQueue(t, 0)
	done := make(chan struct{})
	job := &recordingJob{done: done}
	q.RegisterJob(job)
	require.NoError(t, q.Start())
	assert.Error(t, q.Start())

	require.NoError(t, q.PublishMessage(context.Background(), "birth_extraction", extractPayload{JobID: "j9", Text: "Ada"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job not handled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(ctx))
	require.NoError(t, q.Stop(ctx))

	job.mu.Lock()
	defer job.mu.Unlock()
	require.Len(t, job.seen, 1)
	assert.Equal(t, "j9", job.seen[0].JobID)
}

func TestProducerOnlyIgnoresJobs(t *testing.T) {
	q := newQueue(nil, nil, ModeProducerOnly)
	q.st = newMemStore()
	q.RegisterJob(&recordingJob{})
	assert.Empty(t, q.jobs)
	assert.Equal(t, "producer-only", ModeProducerOnly.String())
}
