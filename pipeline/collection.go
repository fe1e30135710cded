package pipeline

// Collection manages an ordered list of pipelines as one unit,
// typically one async-wrapped looped pipeline per physical sensor.
type Collection struct {
	members []Pipeline
}

// NewCollection creates a Collection over members.
func NewCollection(members ...Pipeline) *Collection {
	return &Collection{members: members}
}

// Start starts every member in order. Async members return
// immediately, so starting does not block on any one sensor's loop.
func (c *Collection) Start() {
	for _, member := range c.members {
		member.Start()
	}
}

// Stop stops every member in order. Each async member's Stop blocks
// until its worker joins, so Stop returns only after all members have
// fully terminated.
func (c *Collection) Stop() {
	for _, member := range c.members {
		member.Stop()
	}
}
