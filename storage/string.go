package storage

import "time"

// Get returns the string value at key. Returns (nil, false, nil) when the
// key is absent, and ErrWrongType when it holds a stream.
func (s *Store) Get(key string) (value []byte, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[key]
	if !exists {
		return nil, false, nil
	}
	if e.kind != KindString {
		return nil, false, ErrWrongType
	}
	return e.str, true, nil
}

// Set implements SET per spec.md §4.3: mode selects NX/XX/unconditional
// overwrite, returnOld requests the previous string value (GET option,
// WRONGTYPE if the previous value was a stream), and expire controls the
// resulting deadline. wrote reports whether the NX/XX condition let the
// write through.
func (s *Store) Set(key string, value []byte, mode WriteMode, returnOld bool, expire Expire) (old []byte, hadOld bool, wrote bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.data[key]

	if returnOld && exists && existing.kind != KindString {
		return nil, false, false, ErrWrongType
	}
	if returnOld && exists {
		old, hadOld = existing.str, true
	}

	write := true
	switch mode {
	case WriteIfExists:
		write = exists
	case WriteIfAbsent:
		write = !exists
	}
	if !write {
		return old, hadOld, false, nil
	}

	e := &entry{kind: KindString, str: value}
	if expire.Mode == ExpireKeep && exists {
		e.deadline = existing.deadline
	}
	cancelLocked(existing)
	s.data[key] = e

	switch {
	case expire.Mode == ExpireAt:
		s.scheduleExpiration(key, e, expire.At)
	case expire.Mode == ExpireKeep && !e.deadline.IsZero():
		s.scheduleExpiration(key, e, e.deadline)
	}

	return old, hadOld, true, nil
}

// GetDel atomically returns the string value at key and removes it.
func (s *Store) GetDel(key string) (value []byte, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.data[key]
	if !exists {
		return nil, false, nil
	}
	if e.kind != KindString {
		return nil, false, ErrWrongType
	}
	cancelLocked(e)
	delete(s.data, key)
	return e.str, true, nil
}

// GetEx returns the string value at key, optionally adjusting its
// expiration per expire (ExpireUnset leaves the deadline untouched,
// ExpireNone clears it, ExpireAt installs a new one).
func (s *Store) GetEx(key string, expire Expire) (value []byte, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.data[key]
	if !exists {
		return nil, false, nil
	}
	if e.kind != KindString {
		return nil, false, ErrWrongType
	}

	switch expire.Mode {
	case ExpireNone:
		cancelLocked(e)
		e.deadline = time.Time{}
	case ExpireAt:
		cancelLocked(e)
		s.scheduleExpiration(key, e, expire.At)
	}

	return e.str, true, nil
}
