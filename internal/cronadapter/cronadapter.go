// Package cronadapter is C1: the host crontab treated as an ordered list of
// text entries, mutated under an advisory lock with backup-before-write and
// atomic replace, per spec.md §4.1 and §9.
package cronadapter

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/fsutil"
)

// Entry is one crontab line this application owns: five time fields, the
// runner invocation, and the application marker comment used for targeted
// removal.
type Entry struct {
	Minute   string
	Hour     string
	DOM      string
	Month    string
	Command  string // "<runner_path> <job_id>"
	Tag      string // "HOTTUB:<job_id>"
}

// String renders e in the exact wire format spec.md §6 mandates.
func (e Entry) String() string {
	return fmt.Sprintf("%s %s %s %s * %s # %s", e.Minute, e.Hour, e.DOM, e.Month, e.Command, e.Tag)
}

const marker = "HOTTUB:"

// hasTag reports whether line carries an application marker comment at all
// — used to distinguish our entries from anything a human or other tool
// put in the same crontab, which operations must never touch.
func hasTag(line string) bool {
	return strings.Contains(line, "# "+marker)
}

func tagOf(line string) string {
	i := strings.LastIndex(line, "# "+marker)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(line[i+2:])
}

// Adapter is C1's runtime: it shells out to the host's crontab(1) rather
// than parsing /var/spool/cron directly, so it works unmodified across the
// hosts cron implementations differ on.
type Adapter struct {
	lockPath   string
	backupDir  string
	crontabBin string
}

// New builds an Adapter. lockPath is the sentinel fsutil.Acquire locks for
// every mutation; backupDir receives a timestamped snapshot before each one.
func New(lockPath, backupDir string) *Adapter {
	return &Adapter{lockPath: lockPath, backupDir: backupDir, crontabBin: "crontab"}
}

// List returns every application-tagged line currently installed, in file
// order, ignoring lines without our marker.
func (a *Adapter) List() ([]Entry, error) {
	lines, err := a.readRaw()
	if err != nil {
		return nil, apperror.CronAccessError(err)
	}
	var out []Entry
	for _, line := range lines {
		if !hasTag(line) {
			continue
		}
		if e, ok := parseLine(line); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Add appends entry to the table, under lock, with a backup taken first.
func (a *Adapter) Add(entry Entry) error {
	lock, err := fsutil.Acquire(a.lockPath)
	if err != nil {
		return apperror.CronAccessError(err)
	}
	defer lock.Release()

	lines, err := a.readRaw()
	if err != nil {
		return apperror.CronAccessError(err)
	}
	if err := a.backup(lines); err != nil {
		return apperror.CronWriteError(err)
	}
	lines = append(lines, entry.String())
	return a.writeRaw(lines)
}

// RemoveMatching drops every line tagged with exactly commentTag (e.g.
// "HOTTUB:ab12cd34"), leaving every other line — tagged or not — untouched.
// Removing a tag that is not present is a no-op, matching the idempotent
// cleanup contract shared between SchedulerService.cancel and CronRunner's
// self-removal.
func (a *Adapter) RemoveMatching(commentTag string) error {
	lock, err := fsutil.Acquire(a.lockPath)
	if err != nil {
		return apperror.CronAccessError(err)
	}
	defer lock.Release()

	lines, err := a.readRaw()
	if err != nil {
		return apperror.CronAccessError(err)
	}
	if err := a.backup(lines); err != nil {
		return apperror.CronWriteError(err)
	}

	kept := lines[:0:0]
	for _, line := range lines {
		if hasTag(line) && tagOf(line) == commentTag {
			continue
		}
		kept = append(kept, line)
	}
	return a.writeRaw(kept)
}

// ReplaceAll installs entries as the complete set of application-tagged
// lines, preserving every non-application line already present.
func (a *Adapter) ReplaceAll(entries []Entry) error {
	lock, err := fsutil.Acquire(a.lockPath)
	if err != nil {
		return apperror.CronAccessError(err)
	}
	defer lock.Release()

	lines, err := a.readRaw()
	if err != nil {
		return apperror.CronAccessError(err)
	}
	if err := a.backup(lines); err != nil {
		return apperror.CronWriteError(err)
	}

	kept := lines[:0:0]
	for _, line := range lines {
		if !hasTag(line) {
			kept = append(kept, line)
		}
	}
	for _, e := range entries {
		kept = append(kept, e.String())
	}
	return a.writeRaw(kept)
}

func (a *Adapter) readRaw() ([]string, error) {
	cmd := exec.Command(a.crontabBin, "-l")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stdout.Len() == 0 && strings.Contains(strings.ToLower(stderr.String()), "no crontab") {
			return nil, nil
		}
		return nil, fmt.Errorf("crontab -l: %w (%s)", err, stderr.String())
	}
	var lines []string
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func (a *Adapter) writeRaw(lines []string) error {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	cmd := exec.Command(a.crontabBin, "-")
	cmd.Stdin = &buf
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return apperror.CronWriteError(fmt.Errorf("crontab -: %w (%s)", err, stderr.String()))
	}
	return nil
}

func (a *Adapter) backup(lines []string) error {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	name := fmt.Sprintf("crontab.%s.bak", time.Now().UTC().Format("20060102T150405.000000000Z"))
	return fsutil.AtomicWrite(a.backupDir+"/"+name, buf.Bytes())
}

// parseLine recovers an Entry from a line this adapter previously wrote.
// Foreign tagged lines that don't match our own format are skipped rather
// than erroring, since List must never fail on a malformed neighbour entry.
func parseLine(line string) (Entry, bool) {
	body := line
	tag := tagOf(line)
	if i := strings.Index(line, "#"); i >= 0 {
		body = strings.TrimSpace(line[:i])
	}
	fields := strings.Fields(body)
	if len(fields) < 6 {
		return Entry{}, false
	}
	// fields: minute hour dom month * cmd...
	command := strings.Join(fields[5:], " ")
	return Entry{
		Minute:  fields[0],
		Hour:    fields[1],
		DOM:     fields[2],
		Month:   fields[3],
		Command: command,
		Tag:     tag,
	}, true
}
