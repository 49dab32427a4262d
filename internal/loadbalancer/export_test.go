package loadbalancer

// Cursor returns the index of the last selection.
func (s *Selector) Cursor() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.cursor
}
