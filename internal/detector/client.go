package detector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"scummsync/internal/inistore"
	"scummsync/internal/library"
	"scummsync/internal/logging"
	"scummsync/internal/services"
)

// ErrNoMatch reports that the engine did not recognise any game.
var ErrNoMatch = fmt.Errorf("no game detected: %w", services.ErrNotFound)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger attaches a logger for engine output at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "detector")
		}
	}
}

// Client wraps the engine's detection commands.
type Client struct {
	binary    string
	baseArgs  []string
	storePath string
	root      library.Root
	timeout   time.Duration
	exec      Executor
	logger    *slog.Logger
}

// New constructs a detector client. storePath is the configuration store the
// engine writes on --add; root resolves relative paths found there.
func New(binary string, baseArgs []string, storePath string, root library.Root, timeout time.Duration, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("engine binary required")
	}
	client := &Client{
		binary:    binary,
		baseArgs:  append([]string(nil), baseArgs...),
		storePath: storePath,
		root:      root,
		timeout:   timeout,
		exec:      commandExecutor{},
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Detect returns the id the engine reports for contentPath.
func (c *Client) Detect(ctx context.Context, contentPath string) (string, error) {
	var parser detectParser
	if err := c.run(ctx, "detect", contentPath, parser.feed); err != nil {
		return "", err
	}
	if parser.id == "" {
		return "", fmt.Errorf("%w in %s", ErrNoMatch, contentPath)
	}
	c.logger.Debug("engine detected game",
		logging.String("path", contentPath),
		logging.String("game_id", parser.id),
		logging.String("engine", parser.engine),
	)
	return parser.id, nil
}

// Add registers contentPath with the engine and returns the label of the
// section it created (or already had) for that path.
func (c *Client) Add(ctx context.Context, contentPath string) (string, error) {
	if err := c.run(ctx, "add", contentPath, nil); err != nil {
		return "", err
	}
	store, err := inistore.Load(c.storePath)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "detector", "add", "Re-read configuration store after add", err)
	}
	label := FindByPath(store, c.root, contentPath)
	if label == "" {
		return "", fmt.Errorf("%w: engine added no section for %s", ErrNoMatch, contentPath)
	}
	c.logger.Debug("engine added game",
		logging.String("path", contentPath),
		logging.String("label", label),
	)
	return label, nil
}

// FindByPath returns the label of the last game section whose content path
// matches contentPath, or "" when none does. The engine appends new
// sections, so the last match is the most recent registration.
func FindByPath(store *inistore.Store, root library.Root, contentPath string) string {
	want := library.NormalizeKey(root.ContentPath(contentPath))
	label := ""
	for _, sec := range store.GameSections() {
		if library.NormalizeKey(root.ContentPath(sec.Path())) == want {
			label = sec.Label()
		}
	}
	return label
}

func (c *Client) run(ctx context.Context, mode, contentPath string, onStdout func(string)) error {
	if strings.TrimSpace(contentPath) == "" {
		return services.Wrap(services.ErrValidation, "detector", mode, "Content path required", nil)
	}
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := append(append([]string(nil), c.baseArgs...), "--"+mode, "--path="+contentPath)
	forward := func(line string) {
		c.logger.Debug("engine output", logging.String("line", line))
		if onStdout != nil {
			onStdout(line)
		}
	}
	if err := c.exec.Run(runCtx, c.binary, args, forward); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "detector", mode, fmt.Sprintf("Engine --%s timed out after %s", mode, c.timeout), err)
		}
		return services.Wrap(services.ErrExternalTool, "detector", mode, fmt.Sprintf("Engine --%s failed for %s", mode, contentPath), err)
	}
	return nil
}

// detectParser reads the engine's detection table: a header row, a row of
// dashes, then one row per candidate whose first column is "engine:gameid".
type detectParser struct {
	pastRule bool
	id       string
	engine   string
}

func (p *detectParser) feed(line string) {
	if p.id != "" {
		return
	}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	if !p.pastRule {
		if strings.Trim(trimmed, "- ") == "" {
			p.pastRule = true
		}
		return
	}
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return
	}
	engine, id, found := strings.Cut(fields[0], ":")
	if !found {
		id, engine = engine, ""
	}
	p.id = id
	p.engine = engine
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	forward := func(line string) {
		if onStdout == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		onStdout(line)
	}

	wg.Add(2)
	go scan(stdout, forward)
	go scan(stderr, func(string) {})

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
