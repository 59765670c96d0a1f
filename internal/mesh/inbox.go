package mesh

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pimesh/crew/internal/feed"
	"github.com/pimesh/crew/internal/fileutil"
	"github.com/pimesh/crew/internal/metrics"
)

// CrewWorkerEnv, when set to any non-empty value in a process's
// environment, marks it as a crew worker for the purposes of the
// worker-broadcast rule in spec §4.3/§9.
const CrewWorkerEnv = "CREW_IS_WORKER"

// IsWorkerProcess reports whether the current process is a crew worker.
func IsWorkerProcess() bool {
	return os.Getenv(CrewWorkerEnv) != ""
}

// Inbox delivers and watches messages for a single base root.
type Inbox struct {
	Base   string
	Logger *zap.Logger
}

// NewInbox returns an Inbox rooted at base.
func NewInbox(base string) *Inbox {
	return &Inbox{Base: base}
}

func (ib *Inbox) logger() *zap.Logger {
	if ib.Logger == nil {
		return zap.NewNop()
	}
	return ib.Logger
}

// Send atomically writes msg into the recipient's inbox directory.
func (ib *Inbox) Send(to string, msg InboxMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	msg.To = to
	name := fmt.Sprintf("%d-%s.json", msg.Timestamp.UnixMilli(), randSuffix())
	path := filepath.Join(fileutil.InboxDir(ib.Base, to), name)
	if err := fileutil.AtomicWriteJSON(path, &msg); err != nil {
		return err
	}
	metrics.MessagesDelivered.Inc()
	return nil
}

func randSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Broadcast delivers a copy of text to every peer in scope, except a
// worker process, whose broadcasts are logged to the feed only and never
// fanned out to inboxes (spec §4.3, §9 "hard rule of the core").
func (ib *Inbox) Broadcast(registry *Registry, f *feed.Feed, self, text, replyTo string, scopeToFolder bool, cwd string) error {
	if IsWorkerProcess() {
		if f != nil {
			_ = f.Append(feed.Event{Agent: self, Type: feed.EventMessage, Preview: preview(text)})
		}
		return nil
	}
	peers, err := registry.ActivePeers(scopeToFolder, cwd)
	if err != nil {
		return err
	}
	for _, peer := range peers {
		if peer.Name == self {
			continue
		}
		if err := ib.Send(peer.Name, InboxMessage{From: self, Text: text, ReplyTo: replyTo}); err != nil {
			return fmt.Errorf("broadcast to %s: %w", peer.Name, err)
		}
	}
	if f != nil {
		_ = f.Append(feed.Event{Agent: self, Type: feed.EventMessage, Preview: preview(text)})
	}
	return nil
}

func preview(text string) string {
	const max = 120
	if len(text) <= max {
		return text
	}
	return text[:max] + "…"
}

// watcherRetryBackoff bounds restart attempts for a failed fsnotify
// watcher before falling back to polling, per spec §5 "Timeouts".
var watcherRetryBackoff = []time.Duration{
	250 * time.Millisecond, 500 * time.Millisecond, time.Second, 2 * time.Second,
}

// pollInterval is used once the watcher has exhausted its retries.
const pollInterval = 2 * time.Second

// Watch starts delivering inbox messages for self to deliver as they
// arrive, until stop() is called. It prefers an fsnotify watch on the
// inbox directory; on repeated watcher failure it degrades to polling on
// each tick, matching the teacher's "reactive source, poll on failure"
// design (spec §9 "Filesystem watchers").
func (ib *Inbox) Watch(self string, deliver func(InboxMessage)) (stop func(), err error) {
	dir := fileutil.InboxDir(ib.Base, self)
	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure inbox dir: %w", err)
	}

	done := make(chan struct{})
	go ib.run(dir, deliver, done)

	return func() { close(done) }, nil
}

func (ib *Inbox) run(dir string, deliver func(InboxMessage), done <-chan struct{}) {
	ib.drain(dir, deliver)

	attempt := 0
	for {
		watcher, err := fsnotify.NewWatcher()
		if err == nil {
			if err := watcher.Add(dir); err != nil {
				watcher.Close()
				err = nil
			} else if ib.watchLoop(watcher, dir, deliver, done) {
				watcher.Close()
				return // done signalled
			} else {
				watcher.Close()
			}
		}

		if attempt < len(watcherRetryBackoff) {
			ib.logger().Warn("inbox watcher restart", zap.String("dir", dir), zap.Int("attempt", attempt))
			select {
			case <-done:
				return
			case <-time.After(watcherRetryBackoff[attempt]):
			}
			attempt++
			continue
		}

		// Exhausted watcher retries: degrade to polling.
		ib.logger().Warn("inbox watcher degraded to polling", zap.String("dir", dir))
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ib.drain(dir, deliver)
			}
		}
	}
}

// watchLoop services fsnotify events until the watcher errors out or done
// fires. It returns true if done fired (caller should stop entirely) and
// false if the watcher died and should be retried.
func (ib *Inbox) watchLoop(watcher *fsnotify.Watcher, dir string, deliver func(InboxMessage), done <-chan struct{}) bool {
	for {
		select {
		case <-done:
			return true
		case event, ok := <-watcher.Events:
			if !ok {
				return false
			}
			if (event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) && strings.HasSuffix(event.Name, ".json") {
				ib.deliverFile(event.Name, deliver)
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return false
			}
			return false
		}
	}
}

// drain reads every file currently in dir and delivers it, used on
// startup and by the polling fallback.
func (ib *Inbox) drain(dir string, deliver func(InboxMessage)) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ib.deliverFile(filepath.Join(dir, entry.Name()), deliver)
	}
}

// deliverFile reads, parses, and removes an inbox file. Parse or stat
// failures drop the file quietly after this single attempt, per spec
// §4.3 ("drop the file quietly after a short retry window").
func (ib *Inbox) deliverFile(path string, deliver func(InboxMessage)) {
	var msg InboxMessage
	if !fileutil.ReadJSON(path, &msg) {
		_ = os.Remove(path)
		return
	}
	_ = os.Remove(path)
	if deliver != nil {
		deliver(msg)
	}
}
