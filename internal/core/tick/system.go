package tick

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput   Phase = iota // 0: drain packet queues
	PhaseUpdate               // 1: game logic, script updates
	PhaseOutput               // 2: build + send packets
	PhaseCleanup              // 3: destroy queued objects, reap dead sessions
)

// System is the interface every game loop system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
