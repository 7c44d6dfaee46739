package upload

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDLockerSerializesSameID(t *testing.T) {
	locker := NewIDLocker()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locker.WithLock("same", func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestIDLockerIndependentIDs(t *testing.T) {
	locker := NewIDLocker()

	locker.Acquire("a")
	done := make(chan struct{})
	go func() {
		// Must not block on "a" being held
		locker.Acquire("b")
		locker.Release("b")
		close(done)
	}()
	<-done
	locker.Release("a")
}

func TestIDLockerWithLockReturnsError(t *testing.T) {
	locker := NewIDLocker()
	wantErr := errors.New("boom")

	err := locker.WithLock("x", func() error { return wantErr })
	require.ErrorIs(t, err, wantErr)
}
