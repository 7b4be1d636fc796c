// Package keylock сериализует операции по строковому ключу внутри процесса.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker выдаёт мьютекс на ключ. Записи удаляются, когда их никто не держит.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New создаёт пустой Locker.
func New() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock захватывает блокировку ключа и возвращает функцию освобождения.
func (l *Locker) Lock(key string) (unlock func()) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// Len число ключей, по которым сейчас есть владельцы или ожидающие.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
