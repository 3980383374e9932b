package chunksvc

import "sync"

// keyedMutex — таблица мьютексов по uploadId. Запись удаляется, когда её
// больше никто не держит и не ждёт.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*refLock{}}
}

// Lock захватывает мьютекс ключа и возвращает функцию освобождения.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.Unlock()

			k.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}

// TryLock захватывает мьютекс только если он свободен. Используется сборщиком
// мусора, чтобы не ждать активные загрузки.
func (k *keyedMutex) TryLock(key string) (func(), bool) {
	k.mu.Lock()
	if _, busy := k.locks[key]; busy {
		k.mu.Unlock()
		return nil, false
	}
	l := &refLock{refs: 1}
	l.Lock()
	k.locks[key] = l
	k.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.Unlock()

			k.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}, true
}

func (k *keyedMutex) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
