package core

import (
	"os"
	"sync"
)

// saveLog appends every saved image url as a line to a text file.
type saveLog struct {
	mu   sync.Mutex
	path string
}

func newSaveLog(path string) *saveLog {
	return &saveLog{path: path}
}

func (l *saveLog) append(url string) error {
	if l.path == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.WriteString(url + "\n"); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
