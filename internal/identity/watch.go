// Copyright 2026 The kad Authors
// This file is part of kad.
//
// kad is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// kad is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with kad. If not, see <http://www.gnu.org/licenses/>.

package identity

import (
	"github.com/rjeczalik/notify"
)

// watcher notices when files under the keystore's directory change on disk
// outside of this process (an operator dropping in a new key file) and
// invokes onChange so the caller can re-import. Adapted directly from the
// teacher's accounts/watch.go, which does the same for the account cache.
type watcher struct {
	dir      string
	ev       chan notify.EventInfo
	quit     chan struct{}
	onChange func()
}

func newWatcher(dir string, onChange func()) *watcher {
	return &watcher{
		dir:      dir,
		ev:       make(chan notify.EventInfo, 10),
		quit:     make(chan struct{}),
		onChange: onChange,
	}
}

func (w *watcher) start() error {
	if err := notify.Watch(w.dir+"/...", w.ev, notify.All); err != nil {
		return err
	}
	go w.loop()
	return nil
}

func (w *watcher) loop() {
	defer notify.Stop(w.ev)
	for {
		select {
		case <-w.ev:
			if w.onChange != nil {
				w.onChange()
			}
		case <-w.quit:
			return
		}
	}
}

func (w *watcher) close() {
	close(w.quit)
}

// Watch starts watching the keystore directory for external changes.
func (k *Keystore) Watch(onChange func()) error {
	k.w = newWatcher(k.dir, onChange)
	return k.w.start()
}

// StopWatch stops the directory watcher started by Watch, if any.
func (k *Keystore) StopWatch() {
	if k.w != nil {
		k.w.close()
		k.w = nil
	}
}
