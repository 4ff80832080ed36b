package channel

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"sync"
	"sync/atomic"
)

// maxLineSize bounds a single envelope read from the parser.
const maxLineSize = 16 * 1024 * 1024

// Envelope is one line of the subprocess protocol.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ProcessChannel talks to an external parser process over its stdin and
// stdout, one JSON Envelope per line in each direction. Stderr is logged.
type ProcessChannel struct {
	handlers *registry

	cmd       *exec.Cmd
	stdin     io.WriteCloser
	writeMu   sync.Mutex
	connected atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	waitErr   error
}

// StartProcess launches command and connects to it. The process is killed
// when ctx is cancelled or Close is called.
func StartProcess(ctx context.Context, command []string) (*ProcessChannel, error) {
	if len(command) == 0 {
		return nil, errors.New("parser command is empty")
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("parser stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("parser stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("parser stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start parser %s: %w", command[0], err)
	}

	pc := &ProcessChannel{
		handlers: newRegistry(),
		cmd:      cmd,
		stdin:    stdin,
		done:     make(chan struct{}),
	}
	pc.connected.Store(true)

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		pc.readLoop(stdout)
	}()
	go func() {
		defer readers.Done()
		logStderr(command[0], stderr)
	}()
	go func() {
		readers.Wait()
		pc.waitErr = cmd.Wait()
		pc.connected.Store(false)
		if pc.waitErr != nil && ctx.Err() == nil {
			log.Printf("Warning: parser process exited: %v", pc.waitErr)
		}
		close(pc.done)
	}()

	return pc, nil
}

// Emit writes one envelope line to the parser.
func (pc *ProcessChannel) Emit(ctx context.Context, event string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !pc.connected.Load() {
		return ErrNotConnected
	}

	raw, err := encode(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	line, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	line = append(line, '\n')

	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	if _, err := pc.stdin.Write(line); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

// On subscribes h to events read from the parser.
func (pc *ProcessChannel) On(event string, h Handler) func() {
	return pc.handlers.add(event, h)
}

// Connected reports whether the process is still running.
func (pc *ProcessChannel) Connected() bool {
	return pc.connected.Load()
}

// Done is closed once the process has exited.
func (pc *ProcessChannel) Done() <-chan struct{} {
	return pc.done
}

// Close closes the parser's stdin, which asks it to exit, and waits for it.
// A process that ignores EOF is killed when the start context ends.
func (pc *ProcessChannel) Close() error {
	pc.closeOnce.Do(func() {
		pc.writeMu.Lock()
		pc.stdin.Close()
		pc.writeMu.Unlock()
	})
	<-pc.done

	var exitErr *exec.ExitError
	if errors.As(pc.waitErr, &exitErr) {
		return nil
	}
	return pc.waitErr
}

func (pc *ProcessChannel) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			log.Printf("Warning: parser sent malformed line: %v", err)
			continue
		}
		pc.handlers.dispatch(env.Event, env.Data)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("Warning: reading parser output: %v", err)
	}
	pc.connected.Store(false)
}

func logStderr(name string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Printf("%s: %s", name, scanner.Text())
	}
}
