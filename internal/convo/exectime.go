package convo

import "time"

// StartExecutionTiming marks conversationID as actively executing a turn,
// per spec.md §4.9 step 3. Calling it while already active is a no-op
// beyond refreshing LastUpdated.
func (s *Store) StartExecutionTiming(conversationID string) error {
	return s.withConversation(conversationID, func(c *Conversation) error {
		c.ExecutionTime.IsActive = true
		c.ExecutionTime.LastUpdated = time.Now()
		return nil
	})
}

// StopExecutionTiming accumulates the elapsed time since the timing was
// last started or updated, per spec.md §4.9 step 7 ("always: stop
// execution timing").
func (s *Store) StopExecutionTiming(conversationID string) error {
	return s.withConversation(conversationID, func(c *Conversation) error {
		if c.ExecutionTime.IsActive {
			c.ExecutionTime.TotalSeconds += time.Since(c.ExecutionTime.LastUpdated).Seconds()
		}
		c.ExecutionTime.IsActive = false
		c.ExecutionTime.LastUpdated = time.Now()
		return nil
	})
}
