package stt

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/parleylabs/parley-relay/internal/config"
)

type execDecoderFactory struct {
	cmd     []string
	cfg     config.STTConfig
	timeout time.Duration
}

// NewExecDecoderFactory launches one decoder subprocess per stream. The
// protocol is JSON lines: each request carries a base64 PCM chunk, each
// response reports the recognized segment and whether an utterance boundary
// was reached; a final request flushes the decoder. The configured
// timeout_ms bounds the whole stream: the subprocess is killed and every
// pending wait unblocked when it expires.
func NewExecDecoderFactory(cfg config.STTConfig) (DecoderFactory, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse stt command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("stt command is empty")
	}
	return &execDecoderFactory{
		cmd:     args,
		cfg:     cfg,
		timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
	}, nil
}

func (f *execDecoderFactory) NewDecoder(ctx context.Context, sampleRate int) (Decoder, error) {
	base := f.cmd[0]
	args := append([]string{}, f.cmd[1:]...)
	args = append(args, "--rate", strconv.Itoa(sampleRate))
	if f.cfg.ModelPath != "" {
		args = append(args, "--model", f.cfg.ModelPath)
	}
	if f.cfg.Language != "" {
		args = append(args, "--language", f.cfg.Language)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)

	cmd := exec.CommandContext(ctx, base, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("decoder stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("decoder stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start decoder: %w", err)
	}

	d := &execDecoder{
		cmd:    cmd,
		stdin:  stdin,
		ctx:    ctx,
		cancel: cancel,
		lines:  make(chan string, 1),
	}
	go d.readLines(stdout)
	return d, nil
}

type execDecoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	ctx    context.Context
	cancel context.CancelFunc
	lines  chan string
	// readErr is written before lines is closed; the channel close orders
	// it for the consumer.
	readErr error
}

type decodeRequest struct {
	PCMBase64 string `json:"pcm_base64,omitempty"`
	Final     bool   `json:"final,omitempty"`
}

type decodeResponse struct {
	Segment  string `json:"segment"`
	Boundary bool   `json:"boundary"`
	Text     string `json:"text"`
}

func (d *execDecoder) readLines(stdout io.Reader) {
	defer close(d.lines)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		select {
		case d.lines <- scanner.Text():
		case <-d.ctx.Done():
			return
		}
	}
	d.readErr = scanner.Err()
}

func (d *execDecoder) roundTrip(req decodeRequest) (decodeResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return decodeResponse{}, err
	}
	if _, err := d.stdin.Write(append(data, '\n')); err != nil {
		return decodeResponse{}, fmt.Errorf("write to decoder: %w", err)
	}

	select {
	case line, ok := <-d.lines:
		if !ok {
			if d.readErr != nil {
				return decodeResponse{}, fmt.Errorf("read from decoder: %w", d.readErr)
			}
			return decodeResponse{}, fmt.Errorf("decoder closed its output")
		}
		var resp decodeResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			return decodeResponse{}, fmt.Errorf("decode decoder response: %w", err)
		}
		return resp, nil
	case <-d.ctx.Done():
		return decodeResponse{}, fmt.Errorf("decoder did not respond: %w", d.ctx.Err())
	}
}

func (d *execDecoder) Feed(pcm []byte) (string, bool, error) {
	resp, err := d.roundTrip(decodeRequest{PCMBase64: base64.StdEncoding.EncodeToString(pcm)})
	if err != nil {
		return "", false, err
	}
	return resp.Segment, resp.Boundary, nil
}

func (d *execDecoder) Finish() (string, error) {
	resp, err := d.roundTrip(decodeRequest{Final: true})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (d *execDecoder) Close() error {
	defer d.cancel()
	_ = d.stdin.Close()
	done := make(chan error, 1)
	go func() { done <- d.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		_ = d.cmd.Process.Kill()
		return <-done
	}
}
