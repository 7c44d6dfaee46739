package upload

import (
	"log"
	"sync"
)

// IDLocker serializes session mutations per upload id. Two chunks of the same
// upload finishing at the same instant would otherwise lose one index in the
// session's read-modify-write cycle.
type IDLocker struct {
	mapMutex sync.Mutex
	idMap    map[string]*sync.Mutex
}

func NewIDLocker() *IDLocker {
	return &IDLocker{
		idMap: make(map[string]*sync.Mutex),
	}
}

func (l *IDLocker) Acquire(id string) {
	l.mapMutex.Lock()
	idMutex, ok := l.idMap[id]
	if !ok {
		idMutex = &sync.Mutex{}
		l.idMap[id] = idMutex
	}
	l.mapMutex.Unlock()
	idMutex.Lock()
}

func (l *IDLocker) Release(id string) {
	l.mapMutex.Lock()
	m, ok := l.idMap[id]
	l.mapMutex.Unlock()
	if !ok {
		log.Printf("Release called on id (%s) with no mutex", id)
		return
	}
	m.Unlock()
}

func (l *IDLocker) WithLock(id string, f func() error) error {
	l.Acquire(id)
	defer l.Release(id)
	return f()
}
