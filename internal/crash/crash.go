/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns panics into reports. Recover is the last line of defence in
// main; Guard contains panics raised by drawing backends so a bad file cannot take
// the host down.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	applog "cadpreview/internal/log"
	"cadpreview/internal/telemetry"
	"cadpreview/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

var (
	mu        sync.Mutex
	reportDir string
)

// SetReportDir chooses where crash reports are written. Empty means os.TempDir().
func SetReportDir(dir string) {
	mu.Lock()
	reportDir = dir
	mu.Unlock()
}

func currentReportDir() string {
	mu.Lock()
	defer mu.Unlock()
	if reportDir == "" {
		return os.TempDir()
	}
	return reportDir
}

// PanicError wraps a recovered panic value.
type PanicError struct {
	Component string
	Value     any
	Report    string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: panic: %v", e.Component, e.Value)
}

// Recover captures a panic, logs an error with stacktrace,
// writes an error report file and exits with code 2.
//
// Usage: defer crash.Recover()
func Recover() {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport("main", r, stack)
		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

// Guard runs fn and converts a panic into a *PanicError. The panic is logged and
// reported but never propagated.
func Guard(component string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			path, werr := writeReport(component, r, stack)
			l := applog.WithComponent(component)
			l.Error("panic contained", slog.Any("panic", r), slog.String("report", path))
			if werr != nil {
				l.Warn("crash report not written", slog.Any("err", werr))
			}
			err = &PanicError{Component: component, Value: r, Report: path}
		}
	}()
	fn()
	return nil
}

// Contain is Guard without the report: the panic is converted and logged at
// debug level only. Callers use it for repeats of a panic already reported.
func Contain(component string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			applog.WithComponent(component).Debug("panic contained again", slog.Any("panic", r))
			err = &PanicError{Component: component, Value: r}
		}
	}()
	fn()
	return nil
}

func writeReport(component string, panicVal any, stack []byte) (string, error) {
	dir := currentReportDir()
	_ = os.MkdirAll(dir, 0o755)
	stamp := time.Now().Format("20060102-150405.000000")
	f, err := os.CreateTemp(dir, fmt.Sprintf("cadpreview-crash-%s-*.log", stamp))
	if err != nil {
		return filepath.Join(dir, fmt.Sprintf("cadpreview-crash-%s.log", stamp)), err
	}
	path := f.Name()
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "CAD Preview Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "Component: %s\n", component)
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
