package resultstore

import (
	"sync"

	"gopkg.in/typ.v4/sync2"
)

type keyedMutex[K comparable] struct {
	m sync2.Map[K, *sync.Mutex]
}

func (k *keyedMutex[K]) Lock(key K) {
	mutex, _ := k.m.LoadOrStore(key, &sync.Mutex{})
	mutex.Lock()
}

func (k *keyedMutex[K]) Unlock(key K) {
	mutex, ok := k.m.Load(key)
	if !ok {
		return
	}
	mutex.Unlock()
}
