package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskRunning
	TaskDone
	TaskFailed
)

// Task is one line of a Workflow, typically one fold.
type Task struct {
	Name    string
	Status  TaskStatus
	Message string
}

// Workflow redraws a list of tasks in place while folds run, one spinner
// frame every tick. It is safe for concurrent use by fold workers.
type Workflow struct {
	writer io.Writer
	tick   time.Duration

	mu         sync.Mutex
	tasks      []Task
	frame      int
	lastLines  int
	running    bool
	stopOnce   sync.Once
	stop, done chan struct{}
}

func NewWorkflow(w io.Writer) *Workflow {
	return &Workflow{
		writer: w,
		tick:   80 * time.Millisecond,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// AddTask appends a pending task and returns its index.
func (wf *Workflow) AddTask(name string) int {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	wf.tasks = append(wf.tasks, Task{Name: name})
	return len(wf.tasks) - 1
}

func (wf *Workflow) set(idx int, status TaskStatus, msg string) {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	if idx < 0 || idx >= len(wf.tasks) {
		return
	}
	wf.tasks[idx].Status = status
	wf.tasks[idx].Message = msg
}

func (wf *Workflow) StartTask(idx int, msg string)    { wf.set(idx, TaskRunning, msg) }
func (wf *Workflow) CompleteTask(idx int, msg string) { wf.set(idx, TaskDone, msg) }
func (wf *Workflow) FailTask(idx int, msg string)     { wf.set(idx, TaskFailed, msg) }

// UpdateMessage changes the message of a task without touching its status.
func (wf *Workflow) UpdateMessage(idx int, msg string) {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	if idx >= 0 && idx < len(wf.tasks) {
		wf.tasks[idx].Message = msg
	}
}

// Tasks returns a snapshot of the task list.
func (wf *Workflow) Tasks() []Task {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	return append([]Task(nil), wf.tasks...)
}

// Start launches the redraw loop. Calling it twice is a no-op.
func (wf *Workflow) Start() {
	wf.mu.Lock()
	if wf.running {
		wf.mu.Unlock()
		return
	}
	wf.running = true
	wf.mu.Unlock()

	go func() {
		defer close(wf.done)
		ticker := time.NewTicker(wf.tick)
		defer ticker.Stop()
		for {
			select {
			case <-wf.stop:
				return
			case <-ticker.C:
				wf.mu.Lock()
				wf.frame = (wf.frame + 1) % len(spinnerFrames)
				wf.render(false)
				wf.mu.Unlock()
			}
		}
	}()
}

// Stop ends the redraw loop and prints the final state of every task.
func (wf *Workflow) Stop() {
	wf.stopOnce.Do(func() {
		wf.mu.Lock()
		started := wf.running
		wf.mu.Unlock()
		close(wf.stop)
		if started {
			<-wf.done
		}
		wf.mu.Lock()
		wf.render(true)
		wf.running = false
		wf.mu.Unlock()
	})
}

// render must be called with mu held.
func (wf *Workflow) render(final bool) {
	var b strings.Builder
	for range wf.lastLines {
		b.WriteString("\033[A\033[K")
	}
	for _, t := range wf.tasks {
		b.WriteString(wf.line(t, final))
		b.WriteByte('\n')
	}
	wf.lastLines = len(wf.tasks)
	if final {
		wf.lastLines = 0
	}
	fmt.Fprint(wf.writer, b.String())
}

func (wf *Workflow) line(t Task, final bool) string {
	var icon string
	msg := Dim
	switch t.Status {
	case TaskPending:
		icon = Muted.Render("○")
	case TaskRunning:
		icon = Secondary.Render(spinnerFrames[wf.frame])
		if final {
			icon = Muted.Render("○")
		}
		msg = Secondary
	case TaskDone:
		icon = CheckMark
	case TaskFailed:
		icon = CrossMark
		msg = Error
	}
	out := icon + " " + t.Name
	if t.Message == "" {
		return out
	}
	if final && t.Status != TaskPending {
		return out + " " + msg.Render("→ "+t.Message)
	}
	return out + " " + msg.Render(t.Message)
}
