package storage

import (
	"strconv"
)

// IncrBy adds delta to the integer stored at key, creating it with base 0
// if absent. The stored value must parse as a base-10 int64; overflow past
// int64 range is rejected rather than wrapping.
func (s *Store) IncrBy(key string, delta int64) (result int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.data[key]
	if exists && e.kind != KindString {
		return 0, ErrWrongType
	}

	var cur int64
	if exists {
		cur, err = strconv.ParseInt(string(e.str), 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
	}

	sum := cur + delta
	if (delta > 0 && sum < cur) || (delta < 0 && sum > cur) {
		return 0, ErrOverflow
	}

	if !exists {
		e = &entry{kind: KindString}
		s.data[key] = e
	}
	e.str = []byte(strconv.FormatInt(sum, 10))
	return sum, nil
}

// DecrBy subtracts delta from the integer stored at key.
func (s *Store) DecrBy(key string, delta int64) (result int64, err error) {
	return s.IncrBy(key, -delta)
}

// IncrByFloat adds delta to the float stored at key, creating it with base
// 0 if absent. Uses Go's float64 formatting, trimming trailing zeros the
// way Redis's own long-double formatting does for typical deltas.
func (s *Store) IncrByFloat(key string, delta float64) (result float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.data[key]
	if exists && e.kind != KindString {
		return 0, ErrWrongType
	}

	var cur float64
	if exists {
		cur, err = strconv.ParseFloat(string(e.str), 64)
		if err != nil {
			return 0, ErrNotFloat
		}
	}

	sum := cur + delta

	if !exists {
		e = &entry{kind: KindString}
		s.data[key] = e
	}
	e.str = []byte(strconv.FormatFloat(sum, 'f', -1, 64))
	return sum, nil
}
