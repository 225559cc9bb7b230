package device

import "time"

// task is one cooperatively scheduled activity with its own interval.
// A zero interval runs on every pass.
type task struct {
	name     string
	interval time.Duration
	lastRun  time.Time
	run      func(now time.Time)
}

// Scheduler dispatches a fixed set of tasks from a single loop pass.
// Tasks run in registration order, so the serial drain can stay ahead
// of the tick and the tick ahead of the redraw.
type Scheduler struct {
	tasks []*task
}

// Add registers a task under a name with its dispatch interval.
func (s *Scheduler) Add(name string, interval time.Duration, run func(now time.Time)) {
	s.tasks = append(s.tasks, &task{name: name, interval: interval, run: run})
}

// Pass runs every task whose interval has elapsed since its last run.
func (s *Scheduler) Pass(now time.Time) {
	for _, t := range s.tasks {
		if t.interval == 0 || t.lastRun.IsZero() || now.Sub(t.lastRun) >= t.interval {
			t.run(now)
			t.lastRun = now
		}
	}
}
