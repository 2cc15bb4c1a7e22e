package events

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/jingkaihe/hindsight/pkg/logger"
)

const (
	lockTimeout     = 3 * time.Second
	lockRetryDelay  = 50 * time.Millisecond
	lockRetryJitter = 50 * time.Millisecond
)

var errLockTimeout = errors.New("timeout waiting for snapshot lock")

// getJitteredDelay returns the base retry delay plus a random jitter so
// competing writers do not retry in lockstep.
func getJitteredDelay() time.Duration {
	jitter := time.Duration(rand.Int63n(int64(lockRetryJitter)))
	return lockRetryDelay + jitter
}

type fileLock struct {
	lockPath string
	lockFile *os.File
}

// acquireLock takes an exclusive advisory lock for filePath by creating
// filePath.lock with O_EXCL. The holder's PID is written into the lock
// file; if that process is no longer alive the lock is considered stale
// and broken. Waiting is bounded by lockTimeout, after which
// errLockTimeout is returned and the caller decides whether to proceed.
func acquireLock(ctx context.Context, filePath string) (*fileLock, error) {
	lockPath := filePath + ".lock"
	start := time.Now()

	for {
		file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			if _, err := file.WriteString(fmt.Sprintf("%d\n", os.Getpid())); err != nil {
				file.Close()
				os.Remove(lockPath)
				return nil, errors.Wrap(err, "failed to write PID to lock file")
			}
			return &fileLock{lockPath: lockPath, lockFile: file}, nil
		}

		if !os.IsExist(err) {
			return nil, errors.Wrap(err, "failed to create lock file")
		}

		if pid, ok := readLockPID(lockPath); ok && !processAlive(pid) {
			logger.G(ctx).WithField("pid", pid).WithField("lock_path", lockPath).
				Warn("removing stale lock held by dead process")
			os.Remove(lockPath)
			continue
		}

		if time.Since(start) > lockTimeout {
			return nil, errLockTimeout
		}

		time.Sleep(getJitteredDelay())
	}
}

func (fl *fileLock) release() error {
	if fl.lockFile != nil {
		if err := fl.lockFile.Close(); err != nil {
			return errors.Wrap(err, "failed to close lock file")
		}
	}
	if err := os.Remove(fl.lockPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove lock file")
	}
	return nil
}

// readLockPID reads the holder PID out of an existing lock file. A
// second return of false means the file vanished or does not hold a
// PID yet, in which case no staleness judgement can be made.
func readLockPID(lockPath string) (int, bool) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func processAlive(pid int) bool {
	found, _ := process.PidExists(int32(pid))
	return found
}
