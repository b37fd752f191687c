package crud

import (
	"context"
	"path"
	"sync"

	"github.com/pkg/errors"
)

// The main point of these tests is to catch any case where the interface
// changes. But we also provide a mock for testing.
var _ Store = &MockStore{}

// Submission records one call to MockStore.Submit.
type Submission struct {
	CrashID string
	Name    string
	Data    []byte
}

// MockStore is an in-memory store with optional mocked functionality that is
// intended for use with unit testing. It is also the "memory" connection.
type MockStore struct {
	mu sync.Mutex

	// data stores the mocked data
	// crashID/name -> data
	data map[string][]byte

	submissions []Submission

	connectCount int
	closeCount   int

	// SubmitMock replaces the default Submit implementation with the specified function.
	// This allows for simulating failures.
	SubmitMock func(crashID string, name string, data []byte) error

	// FetchMock replaces the default Fetch implementation with the specified function.
	// This allows for simulating failures.
	FetchMock func(crashID string, name string) ([]byte, error)

	// RetriableMock classifies errors for the retry policy. Without it no
	// error is transient.
	RetriableMock func(err error) bool
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: map[string][]byte{},
	}
}

func (s *MockStore) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Keep track of Connect calls for test asserts later
	s.connectCount++
	return nil
}

func (s *MockStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Keep track of Close calls for test asserts later
	s.closeCount++
	return nil
}

func (s *MockStore) IsRetriable(err error) bool {
	if s.RetriableMock != nil {
		return s.RetriableMock(err)
	}
	return false
}

func (s *MockStore) key(crashID string, name string) string {
	return path.Join(crashID, name)
}

func (s *MockStore) Submit(ctx context.Context, crashID string, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.submissions = append(s.submissions, Submission{CrashID: crashID, Name: name, Data: data})
	mock := s.SubmitMock
	s.mu.Unlock()

	if mock != nil {
		return mock(crashID, name, data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[s.key(crashID, name)] = append([]byte(nil), data...)
	return nil
}

func (s *MockStore) Fetch(ctx context.Context, crashID string, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.FetchMock != nil {
		return s.FetchMock(crashID, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if data, ok := s.data[s.key(crashID, name)]; ok {
		return append([]byte(nil), data...), nil
	}

	return nil, errors.Wrapf(ErrRecordDoesNotExist, "%s/%s", crashID, name)
}

// Submissions returns every Submit call seen so far, in order, including
// those handled by SubmitMock.
func (s *MockStore) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Submission(nil), s.submissions...)
}

// Has reports whether an artifact is stored, without counting as a Fetch.
func (s *MockStore) Has(crashID string, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.data[s.key(crashID, name)]
	return ok
}

// GetConnectCount is for tests to safely read the Connect call count.
func (s *MockStore) GetConnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectCount
}

// GetCloseCount is for tests to safely read the Close call count.
func (s *MockStore) GetCloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}

func (s *MockStore) ResetCounts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectCount = 0
	s.closeCount = 0
}
