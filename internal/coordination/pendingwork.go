package coordination

// PendingAutoWork is the one-slot flag set by the planner after a
// successful plan, and consumed by the post-agent hook to trigger
// autonomous work, per spec §4.6.
type PendingAutoWork struct {
	set bool
	cwd string
}

// SetPendingAutoWork raises the flag with the given cwd, overwriting any
// previously unconsumed value.
func (c *Coordinator) SetPendingAutoWork(cwd string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingWork = PendingAutoWork{set: true, cwd: cwd}
}

// ConsumePendingAutoWork reports and clears the pending-auto-work flag.
func (c *Coordinator) ConsumePendingAutoWork() (cwd string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pendingWork.set {
		return "", false
	}
	cwd = c.pendingWork.cwd
	c.pendingWork = PendingAutoWork{}
	return cwd, true
}
