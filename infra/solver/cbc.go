package solver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/districtopt/core/factory"
	"github.com/kilianp07/districtopt/core/program"
	"github.com/kilianp07/districtopt/infra/logger"
	"github.com/kilianp07/districtopt/pkg/export"
)

// CBCConfig configures the external cbc backend.
type CBCConfig struct {
	Binary  string        `json:"binary"`
	Ratio   float64       `json:"ratio"`
	Timeout time.Duration `json:"timeout"`
	// WorkDir holds the LP and solution files; a temporary directory is used
	// when empty and removed afterwards.
	WorkDir string `json:"work_dir"`
}

// SetDefaults fills unset fields.
func (c *CBCConfig) SetDefaults() {
	if c.Binary == "" {
		c.Binary = "cbc"
	}
	if c.Ratio <= 0 {
		c.Ratio = 0.1
	}
}

// CBC writes the program as an LP file and runs the cbc command line solver.
type CBC struct {
	cfg CBCConfig
	log logger.Logger
}

// NewCBC returns a cbc backend.
func NewCBC(cfg CBCConfig) *CBC {
	cfg.SetDefaults()
	return &CBC{cfg: cfg, log: logger.New("cbc")}
}

// runCommand executes the solver binary. Tests replace it.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func init() {
	_ = program.RegisterSolver("cbc", func(conf map[string]any) (program.Solver, error) {
		var cfg CBCConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, fmt.Errorf("cbc config: %w", err)
		}
		return NewCBC(cfg), nil
	})
}

// Solve implements program.Solver.
func (c *CBC) Solve(ctx context.Context, p *program.Problem) (*program.Solution, error) {
	if len(p.Conflicts) > 0 {
		c.log.Warnf("infeasible before solving: %v", p.Conflicts)
		return program.Infeasible(p), nil
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	dir := c.cfg.WorkDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "districtopt-cbc-")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}
	name := fmt.Sprintf("%s-%d", export.LPName(p.Network().District), time.Now().UnixNano())
	lpPath := filepath.Join(dir, name+".lp")
	solPath := filepath.Join(dir, name+".sol")

	f, err := os.Create(lpPath)
	if err != nil {
		return nil, err
	}
	if err := export.WriteLP(f, p, p.Network().District); err != nil {
		f.Close()
		return nil, fmt.Errorf("write lp: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	args := []string{lpPath, "ratio", strconv.FormatFloat(c.cfg.Ratio, 'g', -1, 64), "solve", "solution", solPath}
	start := time.Now()
	out, err := runCommand(ctx, c.cfg.Binary, args...)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("run %s: %w: %s", c.cfg.Binary, err, strings.TrimSpace(string(out)))
	}
	c.log.Debugw("cbc finished", map[string]any{"duration": time.Since(start).String(), "vars": len(p.Vars)})

	sf, err := os.Open(solPath)
	if err != nil {
		return nil, fmt.Errorf("read solution: %w", err)
	}
	defer sf.Close()
	status, x, err := parseSolution(sf, p)
	if err != nil {
		return nil, err
	}
	return program.NewSolution(p, status, x)
}

// parseSolution reads a cbc solution file. Only non-zero columns are listed;
// the rest stay zero.
func parseSolution(r io.Reader, p *program.Problem) (program.Status, []float64, error) {
	index := make(map[string]int, len(p.Vars))
	for i, v := range p.Vars {
		index[v.Name] = i
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return program.StatusFailed, nil, err
		}
		return program.StatusFailed, nil, fmt.Errorf("empty solution file")
	}
	status := parseStatus(sc.Text())
	if status != program.StatusOptimal {
		return status, nil, nil
	}
	x := make([]float64, len(p.Vars))
	for sc.Scan() {
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(sc.Text()), "**"))
		if len(fields) < 3 {
			continue
		}
		i, ok := index[fields[1]]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return program.StatusFailed, nil, fmt.Errorf("value of %s: %w", fields[1], err)
		}
		x[i] = v
	}
	return status, x, sc.Err()
}

func parseStatus(line string) program.Status {
	l := strings.ToLower(strings.TrimSpace(line))
	switch {
	case strings.HasPrefix(l, "optimal"):
		return program.StatusOptimal
	case strings.Contains(l, "infeasible"):
		return program.StatusInfeasible
	case strings.HasPrefix(l, "unbounded"):
		return program.StatusUnbounded
	default:
		return program.StatusFailed
	}
}
