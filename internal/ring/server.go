package ring

// Server is a node placed on the ring at a fixed position. It owns the
// set of item slots (by ring index) currently routed to it — failover and
// reintegration move entries between two servers' item sets without ever
// touching an item's own ring slot (spec.md §4.5.2).
type Server struct {
	ID       int
	Position int
	Online   bool
	items    map[int]struct{}
}

func newServer(id, position int) *Server {
	return &Server{ID: id, Position: position, Online: true, items: make(map[int]struct{})}
}

// ItemCount returns the number of ring slots currently owned by this server.
func (s *Server) ItemCount() int { return len(s.items) }

// Owns reports whether ring slot index is currently in this server's item
// set.
func (s *Server) Owns(slotIndex int) bool {
	_, ok := s.items[slotIndex]
	return ok
}

func (s *Server) addItem(slot int)    { s.items[slot] = struct{}{} }
func (s *Server) removeItem(slot int) { delete(s.items, slot) }
