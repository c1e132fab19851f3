// Package coordinator schedules root scans and node expansions in the
// background and merges their results into one tree.
//
// A single scheduler goroutine owns the tree. Workers never touch it; they
// hand results back, and a result is applied only if its generation is
// still the active one for its subject. Anything older is dropped.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sadopc/spacescope/internal/exclude"
	"github.com/sadopc/spacescope/internal/logger"
	"github.com/sadopc/spacescope/internal/model"
	"github.com/sadopc/spacescope/internal/scanner"
)

const defaultProgressBuffer = 16

var (
	// ErrClosed is reported by requests made after Close.
	ErrClosed = errors.New("coordinator closed")
	// ErrUnknownNode is reported when expanding a path outside the current tree.
	ErrUnknownNode = errors.New("node is not part of the current tree")
)

// Options configures a Coordinator.
type Options struct {
	// Concurrency caps directory walkers (0 = auto).
	Concurrency int
	// Exclusions is shared with the caller; nil starts empty.
	Exclusions *exclude.Set
	Logger     *logger.Logger
	// ProgressBuffer is the per-subscription progress backlog.
	ProgressBuffer int
	// NodeFlag is set on every node produced, e.g. FlagUsageEstimated.
	NodeFlag model.NodeFlag
}

type operation struct {
	sub    *Subscription
	cancel context.CancelFunc
}

type request struct {
	subject Subject
	reply   chan *Subscription
}

type result struct {
	key      subjectKey
	gen      uint64
	path     string
	totals   scanner.Totals
	children []*model.Node
	err      error
}

// Coordinator is safe for concurrent use. Its methods never wait on I/O.
type Coordinator struct {
	engine *scanner.Engine
	loader *scanner.Loader
	excl   *exclude.Set
	tree   *model.Tree
	log    *logger.Logger
	buffer int
	flag   model.NodeFlag

	requests  chan request
	results   chan result
	quit      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once
	workers   sync.WaitGroup

	// Owned by run.
	gen    uint64
	active map[subjectKey]*operation

	statusMu sync.RWMutex
	busy     map[subjectKey]string
	status   string
}

// New starts a coordinator over fsys.
func New(fsys scanner.FileSystem, opts Options) *Coordinator {
	excl := opts.Exclusions
	if excl == nil {
		excl = exclude.New()
	}
	buffer := opts.ProgressBuffer
	if buffer <= 0 {
		buffer = defaultProgressBuffer
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	engine := scanner.NewEngine(fsys, scanner.Options{Concurrency: opts.Concurrency})
	c := &Coordinator{
		engine:   engine,
		loader:   scanner.NewLoader(engine, scanner.WithNodeFlag(opts.NodeFlag)),
		excl:     excl,
		tree:     model.NewTree(),
		log:      log,
		buffer:   buffer,
		flag:     opts.NodeFlag,
		requests: make(chan request),
		results:  make(chan result),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
		active:   make(map[subjectKey]*operation),
		busy:     make(map[subjectKey]string),
	}
	go c.run()
	return c
}

// StartScan sizes rootPath from scratch. It supersedes any running root
// scan and cancels all expansions of the previous tree.
func (c *Coordinator) StartScan(rootPath string) *Subscription {
	return c.submit(Subject{Kind: SubjectRoot, Path: rootPath})
}

// Expand loads the children of the directory node at path. It supersedes
// a running expansion of the same node; other nodes are unaffected.
func (c *Coordinator) Expand(path string) *Subscription {
	return c.submit(Subject{Kind: SubjectNode, Path: path})
}

// ToggleExclusion flips whether path is excluded and returns the new
// state. Existing sizes are not recomputed.
func (c *Coordinator) ToggleExclusion(path string) bool {
	on := c.excl.Toggle(path)
	c.log.Debugf("exclusion %s: %v", path, on)
	return on
}

// IsExcluded reports whether path or one of its ancestors is excluded.
func (c *Coordinator) IsExcluded(path string) bool {
	return c.excl.Contains(path)
}

// Exclusions lists the directly excluded paths.
func (c *Coordinator) Exclusions() []string {
	return c.excl.Members()
}

// Root returns a snapshot of the current tree, or nil.
func (c *Coordinator) Root() *model.Node {
	return c.tree.Root()
}

// Node returns a snapshot of the subtree at path.
func (c *Coordinator) Node(path string) (*model.Node, bool) {
	return c.tree.Lookup(path)
}

// Busy reports whether any operation is running.
func (c *Coordinator) Busy() bool {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return len(c.busy) > 0
}

// IsBusy reports whether an operation on path is running.
func (c *Coordinator) IsBusy(path string) bool {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	for _, p := range c.busy {
		if p == path {
			return true
		}
	}
	return false
}

// Status is the latest progress description while busy, else "".
func (c *Coordinator) Status() string {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	if len(c.busy) == 0 {
		return ""
	}
	return c.status
}

// Close cancels all work and waits for workers to exit.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.quit)
		<-c.loopDone
		c.workers.Wait()
	})
}

func (c *Coordinator) submit(subject Subject) *Subscription {
	req := request{subject: subject, reply: make(chan *Subscription, 1)}
	select {
	case c.requests <- req:
		return <-req.reply
	case <-c.quit:
		sub := newSubscription(subject, 0, 0)
		sub.finish(Event{Kind: EventFailed, Err: ErrClosed})
		return sub
	}
}

func (c *Coordinator) run() {
	defer close(c.loopDone)
	for {
		select {
		case req := <-c.requests:
			req.reply <- c.handle(req.subject)
		case res := <-c.results:
			c.apply(res)
		case <-c.quit:
			for key, op := range c.active {
				c.supersede(key, op, "shutdown")
			}
			return
		}
	}
}

func (c *Coordinator) handle(subject Subject) *Subscription {
	c.gen++
	sub := newSubscription(subject, c.gen, c.buffer)
	key := subject.key()

	if subject.Kind == SubjectRoot {
		// A new root invalidates every in-flight operation of the old tree.
		for k, op := range c.active {
			c.supersede(k, op, "new root scan")
		}
		c.tree.Reset()
		c.log.Infof("scan %s started (generation %d)", subject.Path, sub.Generation)
		c.start(key, sub, func(ctx context.Context, progress chan<- scanner.Progress) result {
			totals, err := c.engine.ComputeSize(ctx, subject.Path, c.excl, progress)
			return result{path: subject.Path, totals: totals, err: err}
		})
		return sub
	}

	isDir, found := c.tree.IsDir(subject.Path)
	switch {
	case !found:
		sub.finish(Event{Kind: EventFailed, Err: fmt.Errorf("%s: %w", subject.Path, ErrUnknownNode)})
		return sub
	case !isDir:
		sub.finish(Event{Kind: EventFailed, Err: fmt.Errorf("%s: %w", subject.Path, scanner.ErrNotDirectory)})
		return sub
	}

	if op, ok := c.active[key]; ok {
		c.supersede(key, op, "re-expanded")
	}
	c.log.Debugf("expand %s started (generation %d)", subject.Path, sub.Generation)
	c.start(key, sub, func(ctx context.Context, progress chan<- scanner.Progress) result {
		children, err := c.loader.Expand(ctx, subject.Path, c.excl, progress)
		return result{path: subject.Path, children: children, err: err}
	})
	return sub
}

func (c *Coordinator) supersede(key subjectKey, op *operation, reason string) {
	op.cancel()
	delete(c.active, key)
	c.setBusy(key, "", false)
	if op.sub.finish(Event{Kind: EventCancelled}) {
		c.log.Debugf("%s generation %d cancelled: %s", op.sub.Subject.Path, op.sub.Generation, reason)
	}
}

// start runs work on a worker goroutine. A second goroutine relays the
// walk's progress to the subscription.
func (c *Coordinator) start(key subjectKey, sub *Subscription, work func(context.Context, chan<- scanner.Progress) result) {
	ctx, cancel := context.WithCancel(context.Background())
	c.active[key] = &operation{sub: sub, cancel: cancel}
	c.setBusy(key, sub.Subject.Path, true)

	progress := make(chan scanner.Progress, c.buffer)
	c.workers.Add(2)
	go func() {
		defer c.workers.Done()
		for p := range progress {
			c.relay(sub, p)
		}
	}()
	go func() {
		defer c.workers.Done()
		res := work(ctx, progress)
		close(progress)
		res.key, res.gen = key, sub.Generation
		select {
		case c.results <- res:
		case <-c.quit:
		}
	}()
}

func (c *Coordinator) apply(res result) {
	op, ok := c.active[res.key]
	if !ok || op.sub.Generation != res.gen {
		c.log.Debugf("discarding stale result for %s (generation %d)", res.path, res.gen)
		return
	}
	delete(c.active, res.key)
	op.cancel()
	c.setBusy(res.key, "", false)

	if res.err != nil {
		if scanner.IsCancelled(res.err) {
			op.sub.finish(Event{Kind: EventCancelled})
			return
		}
		c.log.Warnf("%s failed: %v", res.path, res.err)
		op.sub.finish(Event{Kind: EventFailed, Err: res.err})
		return
	}

	if res.key.kind == SubjectRoot {
		root := model.NewRoot(res.path, res.totals.Bytes, res.totals.Usage)
		root.Flag = c.flag
		c.tree.SetRoot(root)
		c.log.Infof("scan %s finished: %d bytes, %d files, %d dirs, %d errors",
			res.path, res.totals.Bytes, res.totals.Files, res.totals.Dirs, res.totals.Errors)
		op.sub.finish(Event{Kind: EventCompleted, Root: root.Clone(), Totals: res.totals})
		return
	}

	if err := c.tree.ReplaceChildren(res.path, res.children); err != nil {
		c.log.Warnf("expand %s could not be merged: %v", res.path, err)
		op.sub.finish(Event{Kind: EventFailed, Err: err})
		return
	}
	c.log.Debugf("expand %s finished: %d children", res.path, len(res.children))

	snapshot := make([]*model.Node, len(res.children))
	for i, child := range res.children {
		snapshot[i] = child.Clone()
	}
	op.sub.finish(Event{Kind: EventCompleted, Children: snapshot})
}

func (c *Coordinator) setBusy(key subjectKey, path string, on bool) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	if on {
		c.busy[key] = path
		return
	}
	delete(c.busy, key)
	if len(c.busy) == 0 {
		c.status = ""
	}
}

// relay forwards progress while sub is still running. A superseded
// operation must not overwrite the status of the one that replaced it.
func (c *Coordinator) relay(sub *Subscription, p scanner.Progress) {
	if sub.State() != StateRunning {
		return
	}
	c.noteProgress(p)
	sub.publish(Event{Kind: EventProgress, Progress: p})
}

func (c *Coordinator) noteProgress(p scanner.Progress) {
	c.statusMu.Lock()
	c.status = p.Describe()
	c.statusMu.Unlock()
}
