package transferclient

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	progressBarWidth     = 32
	progressRenderPeriod = 120 * time.Millisecond
)

// progressBar рисует ASCII-индикатор выполнения для потоков данных.
// nil-бар ничего не делает, поэтому вызывающим не нужны проверки.
type progressBar struct {
	out           io.Writer
	prefix        string
	total         int64
	current       int64
	lastRender    time.Time
	lastLineWidth int
	finished      bool
	mu            sync.Mutex
}

func newProgressBar(out io.Writer, prefix string, total int64) *progressBar {
	if out == nil {
		return nil
	}
	return &progressBar{
		out:    out,
		prefix: prefix,
		total:  total,
	}
}

func (p *progressBar) AddBytes(n int64) {
	if p == nil || n <= 0 {
		return
	}
	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return
	}
	p.current += n
	p.mu.Unlock()
	p.render(false)
}

func (p *progressBar) render(force bool) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished && !force {
		return
	}
	now := time.Now()
	if !force && now.Sub(p.lastRender) < progressRenderPeriod {
		return
	}

	p.lastRender = now
	p.writeLocked(p.lineLocked(), "")
}

func (p *progressBar) lineLocked() string {
	var builder strings.Builder
	builder.Grow(len(p.prefix) + 64)
	builder.WriteString(p.prefix)
	builder.WriteByte(' ')

	if p.total <= 0 {
		builder.WriteString(humanize.IBytes(uint64(p.current)))
		builder.WriteString(" transferred")
		return builder.String()
	}

	ratio := float64(p.current) / float64(p.total)
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio*float64(progressBarWidth) + 0.5)
	if filled > progressBarWidth {
		filled = progressBarWidth
	}
	builder.WriteByte('[')
	builder.WriteString(strings.Repeat("=", filled))
	builder.WriteString(strings.Repeat(" ", progressBarWidth-filled))
	builder.WriteString("] ")
	builder.WriteString(fmt.Sprintf("%3d%% ", int(ratio*100+0.5)))
	builder.WriteString(humanize.IBytes(uint64(p.current)))
	builder.WriteByte('/')
	builder.WriteString(humanize.IBytes(uint64(p.total)))

	return builder.String()
}

// writeLocked перерисовывает строку, затирая хвост предыдущей.
func (p *progressBar) writeLocked(line, end string) {
	padding := ""
	if p.lastLineWidth > len(line) {
		padding = strings.Repeat(" ", p.lastLineWidth-len(line))
	}
	p.lastLineWidth = len(line)
	fmt.Fprintf(p.out, "\r%s%s%s", line, padding, end)
}

func (p *progressBar) Finish() {
	p.complete(nil)
}

func (p *progressBar) Fail(err error) {
	if err == nil {
		err = fmt.Errorf("failed")
	}
	p.complete(err)
}

func (p *progressBar) complete(err error) {
	if p == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true

	suffix := " ✓"
	if err != nil {
		suffix = fmt.Sprintf(" ✗ %v", err)
	}
	p.writeLocked(p.lineLocked()+suffix, "\n")
}

// progressReader считает прочитанные байты.
type progressReader struct {
	inner io.Reader
	bar   *progressBar
}

func (r progressReader) Read(b []byte) (int, error) {
	n, err := r.inner.Read(b)
	r.bar.AddBytes(int64(n))
	return n, err
}

type progressReadCloser struct {
	inner io.ReadCloser
	bar   *progressBar
	done  bool
}

func newProgressReadCloser(inner io.ReadCloser, bar *progressBar) io.ReadCloser {
	if bar == nil || inner == nil {
		return inner
	}

	return &progressReadCloser{
		inner: inner,
		bar:   bar,
	}
}

func (p *progressReadCloser) Read(b []byte) (int, error) {
	n, err := p.inner.Read(b)
	if n > 0 {
		p.bar.AddBytes(int64(n))
	}
	if err != nil {
		p.finish(err)
	}
	return n, err
}

func (p *progressReadCloser) Close() error {
	err := p.inner.Close()
	p.finish(err)
	return err
}

func (p *progressReadCloser) finish(err error) {
	if p.done {
		return
	}
	p.done = true
	if err != nil && err != io.EOF {
		p.bar.Fail(err)
		return
	}
	p.bar.Finish()
}
